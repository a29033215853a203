package refcount

import (
	"sync/atomic"

	"github.com/joeycumines/go-freethread/critical"
)

// Object is implemented by any value whose lifetime a Handle arbitrates.
// Finalize is the tp_dealloc-equivalent callback, run exactly once when
// the handle's logical refcount reaches zero. Go's GC still owns the
// backing memory; Finalize only marks the logical end of life (spec.md
// §4.3, §7 scoping note).
type Object interface {
	Finalize()
}

// Thread is the view of a calling thread Incref/Decref/Finalize need: a
// stable identity to compare against the owner tag, and the
// critical.DepthTracker every critical section entry requires.
// threadstate.ThreadState satisfies this without refcount importing
// threadstate, keeping the package dependency order in spec.md §2 intact.
type Thread interface {
	critical.DepthTracker
	ID() uint64
}

var dealloc = critical.Allocate(critical.DepthDealloc)

// Handle wraps an Object with the owner-tagged refcount scheme described
// in doc.go. The zero value is not usable; construct with New or
// NewStatic.
type Handle struct {
	obj Object

	own owner

	// local is only ever touched by the owning thread while tag ==
	// tagOwned; no atomics needed on that path, matching CPython's local
	// refcount field under biased reference counting.
	local uint32

	// shared accumulates cross-thread Increfs/Decrefs once tag == tagAsync,
	// and also non-owner decrefs queued through DecrefAsync before
	// promotion happens.
	shared atomic.Int64

	// pendingFinalize is set by DecrefAsync when it observes the count
	// reach zero. DecrefAsync never calls Finalize itself (spec.md §4.3:
	// "the decrement does not run the destructor synchronously"); a later
	// call to FlushFinalize, made from a safe maintenance point such as
	// AsyncTable.Flush, actually runs it.
	pendingFinalize atomic.Bool

	// weakSlot is h's weakref installation slot (spec.md §4.7: "at most
	// one WeakRef exists per target object... installation is a
	// compare-and-swap into the object header"). nil until the first
	// InstallWeakref call.
	weakSlot atomic.Pointer[weakrefSlot]
}

// WeakrefClearer is the hook finalize invokes immediately before running
// Object.Finalize, implementing spec.md §4.7's target dealloc protocol
// steps 1-3: observe whether the handle is genuinely dying and, if so,
// clear every attached WeakRef/DeathQueueHandle/WeakBinding. Returning
// true means the clearer itself resurrected the object by raising its
// refcount (spec.md line on "the DECREF is turned into an async
// decrement and the destructor is deferred") — finalize then aborts
// instead of calling Object.Finalize.
type WeakrefClearer func(t Thread) (resurrected bool)

// weakrefSlot pairs the installed token (the weakref package's *Ref,
// kept as any so refcount need not import weakref — spec.md §2's
// dependency order has refcount below weakref) with the clearer it
// installed.
type weakrefSlot struct {
	token any
	clear WeakrefClearer
}

// InstallWeakref CAS-installs (token, clear) as h's weakref slot if none
// is installed yet. If a slot is already installed, the existing token
// is returned instead and installed is false, so the caller (typically
// weakref.NewRef) hands back the prior WeakRef rather than constructing
// a second one — spec.md §4.7's "at most one WeakRef exists per target
// object" and the weakref-uniqueness testable property.
func (h *Handle) InstallWeakref(token any, clear WeakrefClearer) (actual any, installed bool) {
	if h.weakSlot.CompareAndSwap(nil, &weakrefSlot{token: token, clear: clear}) {
		return token, true
	}
	return h.weakSlot.Load().token, false
}

// New constructs a Handle owned by the given thread with an initial
// refcount of 1.
func New(obj Object, owner Thread) *Handle {
	h := &Handle{obj: obj, local: 1}
	h.own.store(packOwned(owner.ID()))
	return h
}

// NewStatic constructs a Handle in the STATIC_INIT state: cheap and
// uncounted until the first thread touches it, at which point it CASes
// into ordinary owned tracking by that thread (spec.md §4.3). It is not
// permanently immortal — first use ends STATIC_INIT, not refcounting.
func NewStatic(obj Object) *Handle {
	h := &Handle{obj: obj}
	h.own.store(packTag(tagStaticInit))
	return h
}

// adoptStatic CASes h from STATIC_INIT to owned(t) with a zero local
// count: STATIC_INIT carries no counted references of its own, so the
// retried Incref/Decref that follows is the first real delta applied. A
// losing CAS means another thread already adopted it first; either way h
// is no longer STATIC_INIT once this returns, so the caller should retry
// through the normal path.
func (h *Handle) adoptStatic(t Thread) {
	h.own.casTo(packTag(tagStaticInit), packOwned(t.ID()))
}

// Owned reports whether h is currently owned by t (tag == tagOwned and
// the packed thread id matches t.ID()).
func (h *Handle) Owned(t Thread) bool {
	tag, id := h.own.load()
	return tag == tagOwned && id == t.ID()
}

// Incref increments h's refcount on behalf of t. The fast path (h is
// owned by t) is a single non-atomic increment; any other case goes
// through the shared atomic counter, promoting h to Async ownership if it
// was owned by a different thread. A STATIC_INIT handle adopts t as its
// owner on first touch and retries (spec.md §4.3), rather than staying a
// permanent no-op.
func (h *Handle) Incref(t Thread) {
	tag, id := h.own.load()
	switch {
	case tag == tagStaticInit:
		h.adoptStatic(t)
		h.Incref(t)
	case tag == tagDeleted:
		panic("refcount: Incref on a deleted handle")
	case tag == tagOwned && id == t.ID():
		h.local++
	default:
		h.promoteIfOwned(tag, id)
		h.shared.Add(1)
	}
}

// Decref decrements h's refcount on behalf of t. On the owned fast path
// (h is owned by t) it runs Finalize as soon as the count reaches zero;
// otherwise it goes through DecrefAsync, so reaching zero only marks h
// pending until FlushFinalize runs. It follows Incref's
// STATIC_INIT-adopts-then-retries rule (spec.md §4.3).
func (h *Handle) Decref(t Thread) {
	tag, id := h.own.load()
	switch {
	case tag == tagStaticInit:
		h.adoptStatic(t)
		h.Decref(t)
	case tag == tagDeleted:
		panic("refcount: Decref on a deleted handle")
	case tag == tagOwned && id == t.ID():
		h.local--
		if h.local == 0 && h.shared.Load() == 0 {
			h.finalize(t)
		}
	default:
		h.DecrefAsync(t)
	}
}

// DecrefAsync decrements h's refcount from a thread that does not (or may
// not) own it, without ever touching the non-atomic local counter. This is
// also the path Decref falls back to once a handle has been promoted to
// Async (spec.md §4.4 promotion protocol). Per spec.md §4.3, DECREF_ASYNC
// never runs the destructor synchronously — used from destructor-cleanup
// code specifically to break recursion — so reaching zero here only marks
// h pending; a later FlushFinalize call actually runs Finalize.
func (h *Handle) DecrefAsync(t Thread) {
	tag, id := h.own.load()
	if tag == tagStaticInit {
		h.adoptStatic(t)
		h.DecrefAsync(t)
		return
	}
	if tag == tagDeleted {
		panic("refcount: DecrefAsync on a deleted handle")
	}
	h.promoteIfOwned(tag, id)
	if h.shared.Add(-1) == 0 && h.local == 0 {
		h.pendingFinalize.Store(true)
	}
}

// FlushFinalize runs Finalize for h if a prior DecrefAsync deferred it.
// Callers (typically AsyncTable.Flush) must invoke this from a
// maintenance point outside the original Decref call stack, so that
// destructor-cleanup code using DecrefAsync to break recursion actually
// gets a flat call stack instead of a synchronous cascade.
func (h *Handle) FlushFinalize(t Thread) {
	if h.pendingFinalize.CompareAndSwap(true, false) {
		h.finalize(t)
	}
}

// promoteIfOwned CAS-transitions h from tagOwned to tagAsync, merging the
// owning thread's local counter into shared exactly once. A losing CAS
// means another thread already promoted h; that's fine, the caller just
// proceeds to use the now-shared counter.
func (h *Handle) promoteIfOwned(tag ownerTag, id uint64) {
	if tag != tagOwned {
		return
	}
	oldWord := packOwned(id)
	newWord := packTag(tagAsync)
	if h.own.casTo(oldWord, newWord) {
		// local is safe to read here: the owning thread lost the race
		// (or is the caller), and every future Incref/Decref for this
		// handle now goes through shared, so local is frozen.
		h.shared.Add(int64(h.local))
		h.local = 0
	}
}

// finalize transitions h to tagDeleted and calls Object.Finalize exactly
// once, guarded by the fixed dealloc critical section (critical.DepthDealloc,
// spec.md §4.1) so two threads racing to zero out h's count can't both
// run Finalize. Before doing so it runs any installed WeakrefClearer
// (spec.md §4.7 steps 1-3); if that reports a resurrection, finalize
// aborts and re-queues the decrement asynchronously instead of calling
// Object.Finalize.
func (h *Handle) finalize(t Thread) {
	dealloc.Enter(t)
	defer dealloc.Exit(t)

	tag, _ := h.own.load()
	if tag == tagDeleted {
		return
	}
	if slot := h.weakSlot.Load(); slot != nil && slot.clear(t) {
		h.DecrefAsync(t)
		return
	}
	h.own.store(packTag(tagDeleted))
	h.obj.Finalize()
}
