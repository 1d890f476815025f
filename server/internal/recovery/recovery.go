// Package recovery turns panics in callbacks into errors. It has no server
// dependencies so the scheduler core can use it on its own.
package recovery

import (
	"fmt"
	"runtime/debug"
)

// PanicError is returned by Call when fn panicked.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("recovered panic: %v", e.Value)
}

// Call runs fn and converts a panic into a *PanicError.
func Call(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}
