// Package refcount implements the hybrid owner-tagged reference counting
// scheme spec.md §4.3/§4.4 describes: every Handle starts out owned by a
// single ThreadState (a cheap, non-atomic local counter), and only pays
// for atomic operations once a second thread actually touches it — at
// which point the owner tag is promoted to Async and all further
// Incref/Decref calls go through the shared atomic counter.
//
// This mirrors CPython's biased/deferred reference counting under
// free-threading (PEP 703): most objects are only ever touched by the
// thread that created them, so the fast path must be a plain integer
// increment, not a CAS loop. Grounded on eventloop/state.go's FastState
// CAS-loop idiom for the owner tag's transitions, and catrate/limiter.go's
// categoryData pending-delta-slot model for the per-thread async table
// that batches cross-thread decrefs before flushing them into the shared
// counter.
//
// A STATIC_INIT Handle (NewStatic) is cheap-but-live, not permanently
// uncounted: the first Incref/Decref/DecrefAsync to touch it CASes the
// owner tag to the calling thread and retries through the normal path
// (spec.md §4.3). DecrefAsync never runs Object.Finalize synchronously —
// it exists specifically so destructor-cleanup code can decrement a
// cross-thread reference without recursing into another dealloc; reaching
// zero there only marks the Handle pending, and FlushFinalize (called
// from a safe maintenance point such as AsyncTable.Flush) is what actually
// runs Finalize.
//
// A Handle also carries a single CAS-once weakref slot (InstallWeakref),
// letting a package outside refcount (see package weakref) install a
// WeakrefClearer without refcount importing it back — finalize calls the
// installed clearer immediately before Object.Finalize, and treats a
// "resurrected" report as a reason to fall back to DecrefAsync instead
// of finalizing (spec.md §4.7).
package refcount
