// Package utils holds small generic helpers shared across packages.
package utils

// Ptr returns a pointer to v, for building the optional pointer fields used
// by partial-update payloads.
func Ptr[T any](v T) *T {
	return &v
}

// Value dereferences p, returning the zero value when p is nil.
func Value[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
