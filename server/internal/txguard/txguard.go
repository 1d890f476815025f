// Package txguard recovers from the panic raised when a world transaction
// finishes while a player is still being updated through it.
package txguard

import "github.com/df-mc/dragonfly/server/world"

// ClosedPanicMessage is the panic value raised by a world.Tx used after it finished.
const ClosedPanicMessage = "world.Tx: use of transaction after transaction finishes is not permitted"

// Run calls fn and reports false if tx is nil or finished while fn was running.
// Any other panic is propagated.
func Run(tx *world.Tx, fn func()) (ok bool) {
	if tx == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			if msg, str := r.(string); str && msg == ClosedPanicMessage {
				ok = false
				return
			}
			panic(r)
		}
	}()
	fn()
	return true
}

// Value is like Run but returns the value produced by fn.
func Value[T any](tx *world.Tx, fn func() T) (value T, ok bool) {
	ok = Run(tx, func() {
		value = fn()
	})
	return
}
