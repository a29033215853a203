// Package cancel implements user-facing cancellation scopes layered on
// top of an interrupt.Node tree (spec.md §4.6). A Scope wraps exactly one
// Node; Cancel signals it (and therefore every descendant Scope), and
// CheckCancelled is the cooperative checkpoint user code calls to observe
// it as a corerr.Cancelled error rather than a panic.
//
// SignalEnter/SignalExit bracket a region that must not silently race a
// concurrent Cancel call: per SPEC_FULL.md §5.4's open-question decision,
// the scope owner (the goroutine calling SignalEnter) is responsible for
// re-checking whether the scope was cancelled, rather than Cancel having
// to interrupt in-flight operations itself.
package cancel
