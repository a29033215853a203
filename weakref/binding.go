package weakref

import (
	"sync"

	"github.com/joeycumines/go-freethread/refcount"
)

// Binding pairs a Ref with a value conceptually owned by the target, so
// the binding lives exactly as long as the target does (spec.md §4.7's
// WeakBinding). Get returns (target, value) while the target is alive,
// or (nil, nil) once it has finalized and the binding has been cleared.
type Binding[T any] struct {
	ref *Ref[T]

	mu      sync.Mutex
	value   any
	cleared bool
}

// NewBinding constructs a Binding observing ref's target and carrying
// value, releasing value once ref's target finalizes.
func NewBinding[T any](t refcount.Thread, ref *Ref[T], value any) *Binding[T] {
	b := &Binding[T]{ref: ref, value: value}
	if ref.attachBinding(t, b.clear) {
		b.clear()
	}
	return b
}

// clear is run (at most once) when ref's target finalizes.
func (b *Binding[T]) clear() {
	b.mu.Lock()
	b.cleared = true
	b.value = nil
	b.mu.Unlock()
}

// Get returns (target, value) if the target is still alive, or
// (nil, nil) once it has finalized (spec.md §4.7).
func (b *Binding[T]) Get(t refcount.Thread) (*T, any) {
	target := b.ref.Value(t)
	if target == nil {
		return nil, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cleared {
		return nil, nil
	}
	return target, b.value
}
