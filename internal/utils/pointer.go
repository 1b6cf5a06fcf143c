package utils

// Ptr returns a pointer to v, for optional fields set from literals.
//
// Example:
//
//	opts := ai.Options{Temperature: utils.Ptr(0.2)}
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p, or fallback when p is nil.
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
