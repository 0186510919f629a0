package webview

// Result is either a value or an error.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether r holds a value.
func (r Result[T]) OK() bool { return r.Err == nil }

// Callback receives the outcome of an asynchronous operation. Callbacks
// passed to Controller methods always run on the host thread.
type Callback[T any] func(Result[T])

// Ok returns a successful Result.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// Fail returns a failed Result.
func Fail[T any](err error) Result[T] { return Result[T]{Err: err} }
