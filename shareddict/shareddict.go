package shareddict

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-freethread/corerr"
	"github.com/joeycumines/go-freethread/threadstate"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Dict is a map[K]V wrapper enforcing the shareability boundary and
// read-streak promotion described in doc.go. The zero value is not
// usable; construct with New.
type Dict[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V

	readStreak atomic.Int64
	readOnly   atomic.Bool
	threshold  int64

	stw *threadstate.Runtime
}

// Option customizes New.
type Option[K comparable, V any] func(*Dict[K, V])

// WithStopTheWorld wires stw into the Dict so a Set/Delete that arrives
// after promotion demotes the Dict (via stw.StopTheWorld, so no
// concurrently-running lock-free Get can observe the write) instead of
// being rejected outright. Without this option, a post-promotion write
// has no safe way to demote and is rejected, matching the prior
// permanently-read-only behavior.
func WithStopTheWorld[K comparable, V any](stw *threadstate.Runtime) Option[K, V] {
	return func(d *Dict[K, V]) { d.stw = stw }
}

// New constructs an empty, writable Dict that promotes to read-only after
// threshold consecutive Get calls with no intervening Set
// (runtimecfg.Config.SharedDictReadOnlyThreshold is the usual source for
// threshold).
func New[K comparable, V any](threshold int, opts ...Option[K, V]) *Dict[K, V] {
	if threshold <= 0 {
		panic("shareddict: threshold must be positive")
	}
	d := &Dict[K, V]{m: make(map[K]V), threshold: int64(threshold)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// checkShareable rejects the handful of Go kinds that cannot cross a
// MonitorSpace/Branch/SharedDict boundary safely: funcs, channels, and
// unsafe pointers carry goroutine- or memory-layout-specific state that a
// shared dict's readers on other threads must never observe racily
// (spec.md §4.9).
func checkShareable(v any) error {
	if v == nil {
		return nil
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return corerr.NewTypeError(v)
	}
	return nil
}

// Get returns the value for k, and whether it was present. Once the Dict
// has been promoted to read-only, Get never takes a lock: no further Set
// can occur, so concurrent reads of the backing map are race-free.
func (d *Dict[K, V]) Get(k K) (V, bool) {
	if d.readOnly.Load() {
		v, ok := d.m[k]
		return v, ok
	}

	d.mu.RLock()
	v, ok := d.m[k]
	streak := d.readStreak.Add(1)
	d.mu.RUnlock()

	if streak >= d.threshold {
		d.promote()
	}
	return v, ok
}

// Set stores v under k, resetting the read streak. It returns a
// corerr.TypeError if k or v is not shareable. If the Dict has already
// been promoted to read-only, Set demotes it first (see write) when a
// threadstate.Runtime was wired via WithStopTheWorld, or returns a
// corerr.ValueError otherwise.
func (d *Dict[K, V]) Set(k K, v V) error {
	if err := checkShareable(k); err != nil {
		return err
	}
	if err := checkShareable(v); err != nil {
		return err
	}
	return d.write("Set", func() { d.m[k] = v })
}

// Delete removes k, resetting the read streak. Subject to the same
// promoted-Dict demote-or-reject rule Set follows.
func (d *Dict[K, V]) Delete(k K) error {
	return d.write("Delete", func() { delete(d.m, k) })
}

// write runs fn (a plain map mutation) under the Dict's lock, resetting
// the read streak. If the Dict has already been promoted to read-only,
// Get no longer takes any lock at all, so a write can only proceed by
// demoting it under a StopTheWorld pass (spec.md §4.10): every other
// ThreadState is paused at a safepoint for the duration, so no
// concurrently-running lock-free Get can observe m mid-write. Without a
// wired threadstate.Runtime there is no safe way to demote, so the write
// is rejected instead, preserving the Dict's prior permanently-read-only
// guarantee.
func (d *Dict[K, V]) write(op string, fn func()) error {
	if !d.readOnly.Load() {
		d.mu.Lock()
		if !d.readOnly.Load() {
			d.readStreak.Store(0)
			fn()
			d.mu.Unlock()
			return nil
		}
		d.mu.Unlock()
	}

	if d.stw == nil {
		return &corerr.ValueError{Message: "shareddict: " + op + " on a read-only-promoted Dict"}
	}
	d.stw.StopTheWorld(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.readOnly.Store(false)
		d.readStreak.Store(0)
		fn()
	})
	return nil
}

// Len returns the number of entries currently stored.
func (d *Dict[K, V]) Len() int {
	if d.readOnly.Load() {
		return len(d.m)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.m)
}

// ReadOnly reports whether the Dict has been promoted.
func (d *Dict[K, V]) ReadOnly() bool { return d.readOnly.Load() }

func (d *Dict[K, V]) promote() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readOnly.Store(true)
}

// SortedKeys returns d's keys in ascending order. It is a package-level
// function rather than a method because it needs the extra
// constraints.Ordered bound Dict's own comparable-only K does not carry.
// Diagnostics (snapshot dumps, deterministic test fixtures) are the main
// callers — iteration order over the dict itself stays unspecified.
func SortedKeys[K constraints.Ordered, V any](d *Dict[K, V]) []K {
	if d.readOnly.Load() {
		return sortedKeysLocked(d.m)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeysLocked(d.m)
}

func sortedKeysLocked[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
