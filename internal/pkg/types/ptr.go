package types

// Ptr returns a pointer to a copy of v. It is used to build patches where a
// nil pointer means "leave unchanged".
func Ptr[T any](v T) *T {
	return &v
}
