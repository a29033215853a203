// Package branch implements the structured-concurrency primitives
// spec.md §4.9 describes: both Branch and Collate expose Add/AddResult
// and a Wait/GetResults drain, and move through the same
// ALIVE/DYING/DEAD lifecycle — ALIVE from construction while children
// may still be added, DYING once the scope starts draining, DEAD once
// every child has finished. A NEW state is defined but never entered:
// New and NewCollate return a scope that is already ALIVE. They differ
// only in exit semantics (spec.md §4.8): Collate always collects every
// child's outcome (AllSettled-style); Branch discards every retained
// result on the first failure and raises one "interesting" exception — a
// lone non-Interrupted error if exactly one exists, else Interrupted if
// every child error is Interrupted and the branch's own base
// interrupt.Node fired, else every child error together as a
// corerr.MultipleError.
//
// Branch wires that base node to its children: each AddResult chains a
// fresh interrupt.Node off the previously added child's node (Node
// allows at most one child per parent, so several live children become
// a chain rooted at the base node, not a tree — see interrupt/doc.go).
// The first child failure signals the base node, cascading down the
// whole chain so every other child's cooperative checkpoints observe
// the cancellation.
//
// Grounded on eventloop/promise.go's combinator family (All/AllSettled/Any
// directly informed Collate's "collect every outcome" and Branch's "one
// representative failure" semantics) and eventloop/errors.go's
// AggregateError (the model for corerr.MultipleError), plus
// cpython/Objects/branchobject.c / Objects/collateobject.c for the state
// machine, child-record shape, and base-Interrupt-node wiring. With pins
// each child's goroutine to its own OS thread via runtime.LockOSThread
// before calling threadstate.Enter, the way a free-threaded interpreter
// binds one PyState per OS thread; golang.org/x/sys/unix.Gettid confirms
// the pin took effect for logging.
package branch
