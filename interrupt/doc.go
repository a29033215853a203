// Package interrupt implements the hierarchical cooperative-cancellation
// chain spec.md §4.5 describes: a Node has at most one child (spec.md §3,
// enforced by panicking on a second concurrent Push — the same invariant
// cpython/Objects/interruptobject.c's PyInterrupt_Push asserts), and
// signalling a Node runs its own callback and then signals its child,
// without ever holding a lock while a callback runs (a deadlock in a
// parent's callback must not be able to block its child's). Fan-out (one
// parent, several logical children) is not this package's concern — a
// caller that needs it, like branch.Branch, chains its child Nodes one
// under another instead of Node growing an unconstrained children list.
//
// Grounded on the teacher's AbortSignal (callback-outside-lock draining:
// snapshot the listener set under the mutex, release it, then invoke every
// listener) and cpython/Include/interruptobject.h's parent/child/queue
// shape. Queue is the per-ThreadState registry of Nodes a safepoint check
// walks (spec.md §4.5's "Queue.Add/AddFromParent/Finish").
package interrupt
