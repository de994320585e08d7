package v0

// Response is a generic wrapper for Huma responses
type Response[T any] struct {
	Body T
}
