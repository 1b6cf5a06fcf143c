package utils

import "fmt"

// DefaultPreviewLength bounds log previews when no explicit length is given.
const DefaultPreviewLength = 500

// TruncateString shortens s to at most maxLen bytes and records the original
// length in a suffix. A non-positive maxLen selects DefaultPreviewLength.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultPreviewLength
	}
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}
