// Package critical implements ordered short locks ("Critical sections") as
// described in spec.md §4.1: a section carries a depth, and a thread may
// only enter a section whose depth is strictly smaller (deeper) than any
// section it currently holds. This prevents lock-order inversion between
// the fixed hierarchies go-freethread relies on:
//
//	weakref hierarchy: DepthWeakrefQueue(0) < DepthWeakrefHandle(1) < DepthWeakrefRef(2)
//	default: DepthDefault(0)
//	dealloc-time elevated hierarchy: DepthDealloc(100)
//
// A Section is a thin wrapper over sync.Mutex; the depth bookkeeping lives
// on the calling goroutine's threadstate.ThreadState (see
// ThreadState.CurrentDepth), not inside Section itself, mirroring the
// original's per-PyState "critical_section" stack field.
package critical
