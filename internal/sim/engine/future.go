package engine

import "fmt"

type result[T any] struct {
	val T
	err error
}

// future is a handle to work running on its own goroutine. The engine
// loop polls it without blocking, so a slow task never stalls a tick.
type future[T any] struct {
	ch chan result[T]
}

func spawn[T any](fn func() (T, error)) *future[T] {
	f := &future[T]{ch: make(chan result[T], 1)}
	go func() {
		var res result[T]
		func() {
			defer func() {
				if r := recover(); r != nil {
					res.err = fmt.Errorf("task panic: %v", r)
				}
			}()
			res.val, res.err = fn()
		}()
		f.ch <- res
	}()
	return f
}

// poll returns the result if the task has finished.
func (f *future[T]) poll() (result[T], bool) {
	select {
	case r := <-f.ch:
		return r, true
	default:
		return result[T]{}, false
	}
}
