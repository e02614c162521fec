/*
Package result implements the outcome of a computation which may fail.

Worker goroutines hand their measurement outcomes back to the coordination
context as a Result, which keeps a failure attached to the item it belongs to
instead of travelling on a separate error channel.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package result

// Result is either Ok(value) or Err(error).
type Result[T any] interface {
	Match() Matcher[T]
	Unwrap() (T, error)
	IsErr() bool
}

type result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](x T) Result[T] {
	return result[T]{value: x}
}

// Err wraps an error. A nil error is not allowed.
func Err[T any](err error) Result[T] {
	if err == nil {
		panic("result.Err called with nil error")
	}
	return result[T]{err: err}
}

// From mirrors the usual Go (value, error) return pair.
func From[T any](x T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(x)
}

func (r result[T]) Match() Matcher[T] {
	return matcher[T]{r: r}
}

func (r result[T]) Unwrap() (T, error) {
	return r.value, r.err
}

func (r result[T]) IsErr() bool {
	return r.err != nil
}

// Map transforms an Ok value and passes errors through.
func Map[T, S any](r Result[T], f func(T) S) Result[S] {
	v, err := r.Unwrap()
	if err != nil {
		return Err[S](err)
	}
	return Ok(f(v))
}

// --- Matching --------------------------------------------------------------

// Matcher is used in switch statements to destructure a Result.
type Matcher[T any] interface {
	Ok(*T) Matcher[T]
	Err(*error) Matcher[T]
}

type matcher[T any] struct {
	r result[T]
}

func (rm matcher[T]) Ok(v *T) Matcher[T] {
	if rm.r.err == nil {
		*v = rm.r.value
		return rm
	}
	return nil
}

func (rm matcher[T]) Err(err *error) Matcher[T] {
	if rm.r.err != nil {
		*err = rm.r.err
		return rm
	}
	return nil
}
