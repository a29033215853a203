package weakref

import (
	"sync"

	"github.com/joeycumines/go-freethread/critical"
	"github.com/joeycumines/go-freethread/internal/dlist"
	"github.com/joeycumines/go-freethread/refcount"
)

// Ref is a weak reference to a value of type T whose lifetime a
// refcount.Handle arbitrates (spec.md §4.7): it holds no strong
// reference to the referent, Value observes nil once handle has
// finalized, and at most one Ref exists per Handle — NewRef installs
// itself via Handle.InstallWeakref's compare-and-swap, and every later
// NewRef call against the same handle returns that same Ref instead of
// building a second one.
//
// sec participates in the WEAKREF_REF/HANDLE/QUEUE ordered critical
// section hierarchy (spec.md §4.1, §4.7) purely for the depth-ordering
// discipline: it is allocated dummy (critical.AllocateDummy) because
// Ref's own mu is the actual lock, the same two-tier pattern
// threadstate.ThreadState.Tick uses a real mutex alongside its
// StopTheWorld bookkeeping.
type Ref[T any] struct {
	sec *critical.Section

	mu       sync.Mutex
	handle   *refcount.Handle
	referent *T
	dead     bool
	handles  *dlist.List[*DeathQueueHandle]
	bindings *dlist.List[*bindingLink]
}

// bindingLink is the intrusive record a Binding registers on its Ref.
// Kept untyped-by-T so Ref[T] doesn't need a second type parameter for
// something it only ever clears, never dereferences.
type bindingLink struct {
	clear func()
}

// NewRef returns the Ref observing handle's object: value is the typed
// pointer Value will hand back while handle is alive. If handle already
// has a Ref installed, that Ref is returned unchanged and installed is
// false.
func NewRef[T any](handle *refcount.Handle, value *T) (ref *Ref[T], installed bool) {
	r := &Ref[T]{
		sec:      critical.AllocateDummy(critical.DepthWeakrefRef),
		handle:   handle,
		referent: value,
		handles:  dlist.New[*DeathQueueHandle](),
		bindings: dlist.New[*bindingLink](),
	}
	actual, won := handle.InstallWeakref(r, r.clearForFinalize)
	if !won {
		return actual.(*Ref[T]), false
	}
	return r, true
}

// Value returns the referent if handle has not yet finalized, or nil
// once it has — the referent pointer is cleared exactly once, at the
// target's final deallocation (spec.md §4.7).
func (r *Ref[T]) Value(t refcount.Thread) *T {
	r.sec.Enter(t)
	r.mu.Lock()
	v := r.referent
	if r.dead {
		v = nil
	}
	r.mu.Unlock()
	r.sec.Exit(t)
	return v
}

// clearForFinalize implements spec.md §4.7's target dealloc protocol
// steps 1-3, invoked by refcount.Handle.finalize immediately before
// Object.Finalize runs: null the referent, detach every attached
// DeathQueueHandle and move it to its queue's dead list, and clear every
// attached WeakBinding. Weakrefs carry no user callbacks (spec.md §4.7:
// "Callbacks on weakrefs are explicitly not supported"), so nothing run
// from here can Incref the handle back to life — this always reports
// "not resurrected".
func (r *Ref[T]) clearForFinalize(t refcount.Thread) bool {
	r.sec.Enter(t)
	r.mu.Lock()
	if r.dead {
		r.mu.Unlock()
		r.sec.Exit(t)
		return false
	}
	r.dead = true
	r.referent = nil
	handles := r.handles.Values()
	r.handles = dlist.New[*DeathQueueHandle]()
	bindings := r.bindings.Values()
	r.bindings = dlist.New[*bindingLink]()
	r.mu.Unlock()
	r.sec.Exit(t)

	for _, h := range handles {
		h.moveToDead(t)
	}
	for _, b := range bindings {
		b.clear()
	}
	return false
}

// attach registers h on r so clearForFinalize moves it to its queue's
// dead list at target death, returning alreadyDead if r's target has
// already finalized (in which case the caller must route h straight to
// the dead list itself).
func (r *Ref[T]) attach(t refcount.Thread, h *DeathQueueHandle) (alreadyDead bool) {
	r.sec.Enter(t)
	r.mu.Lock()
	alreadyDead = r.dead
	if !alreadyDead {
		h.refElem = r.handles.PushBack(h)
	}
	r.mu.Unlock()
	r.sec.Exit(t)
	return alreadyDead
}

// detach removes h from r's attached-handle list, e.g. when Cancel is
// called on a still-live handle.
func (r *Ref[T]) detach(t refcount.Thread, h *DeathQueueHandle) {
	r.sec.Enter(t)
	r.mu.Lock()
	if h.refElem != nil {
		r.handles.Remove(h.refElem)
		h.refElem = nil
	}
	r.mu.Unlock()
	r.sec.Exit(t)
}

// attachBinding registers clear to run when r's target dies, returning
// alreadyDead if that has already happened (the caller must call clear
// itself in that case).
func (r *Ref[T]) attachBinding(t refcount.Thread, clear func()) (alreadyDead bool) {
	r.sec.Enter(t)
	r.mu.Lock()
	alreadyDead = r.dead
	if !alreadyDead {
		r.bindings.PushBack(&bindingLink{clear: clear})
	}
	r.mu.Unlock()
	r.sec.Exit(t)
	return alreadyDead
}
