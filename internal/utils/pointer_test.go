package utils

import "testing"

// TestPtrAndDeref verifies the round trip and the nil fallback.
func TestPtrAndDeref(t *testing.T) {
	temperature := Ptr(0.7)
	if temperature == nil || *temperature != 0.7 {
		t.Fatalf("expected pointer to 0.7, got %v", temperature)
	}
	if got := Deref(temperature, 1.0); got != 0.7 {
		t.Errorf("expected 0.7, got %v", got)
	}

	var missing *int
	if got := Deref(missing, 42); got != 42 {
		t.Errorf("expected fallback 42, got %d", got)
	}
}
