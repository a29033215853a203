// Package shareddict implements the reader/writer dict wrapper spec.md
// §4.10 describes: Dict enforces a shareability boundary on every key and
// value (spec.md §4.9's corerr.TypeError contract) and tracks a read
// streak that, once it crosses a configurable threshold, promotes the
// Dict to read-only mode — every subsequent Get skips locking entirely,
// since a Dict that never accepts another Set can never race a reader.
//
// Grounded on catrate/limiter.go's sync.Map + per-category sync.Mutex
// fast-path (categoryData) for the "promote to a cheaper path under
// sustained read pressure" idea, and cpython/Objects/dictobject.c's
// locking contract notes for the read-only/writable state split.
//
// A Dict wired with WithStopTheWorld demotes itself instead of
// permanently rejecting writes once promoted: a Set/Delete that arrives
// after promotion runs under threadstate.Runtime.StopTheWorld, which
// pauses every attached ThreadState at a safepoint before the Dict
// clears its read-only flag and mutates the map, so no concurrently
// running lock-free Get ever observes the write in progress.
package shareddict
