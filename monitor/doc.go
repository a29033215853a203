// Package monitor implements the per-object mutual-exclusion domain
// spec.md §4.7 describes: a MonitorSpace is a lock bound to one logical
// object for its whole life, and Monitor[T] pairs a MonitorSpace with a
// lazily-constructed guarded value.
//
// Grounded on eventloop/state.go's FastState for the holder/waiter
// bookkeeping shape, and cpython/Objects/monitorobject.c for the
// MonitorSpace/Monitor/MonitorMeta shape including
// PyMonitorSpace_SetDeadlockDelay (SPEC_FULL.md §5.1): a per-space
// deadlock delay that SetDeadlockDelay stores and GetDeadlockDelay
// reports. Enter does not time its wait or report anything after the
// delay; the only deadlock it detects is a re-entrant Enter by the
// current holder, which panics immediately.
package monitor
