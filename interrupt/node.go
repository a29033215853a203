package interrupt

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-freethread/internal/dlist"
)

// Callback is run when a Node is signalled. It must not block or re-enter
// the interrupt tree; spec.md §4.5 requires signalling to be
// callback-outside-lock precisely so a slow or buggy callback cannot
// deadlock an unrelated sibling.
type Callback func()

// Node is one entry in the interrupt tree: it has a parent and at most one
// child (spec.md §3: "at most one child per parent"), forming a chain
// rather than an unconstrained tree. Signalling a node also signals its
// chain of descendants, deepest-last (parent callback observed before
// child's). Fan-out (e.g. Branch spawning several children under one
// interrupt) is handled by the caller, not by Node itself — branch.Branch
// chains each new child's Node under the previous child's.
type Node struct {
	cb Callback

	mu     sync.Mutex
	parent *Node
	child  *Node // this Node's sole child, if any is attached

	queueElem *dlist.Node[*Node] // this Node's element in a Queue, if registered

	signalled atomic.Bool
}

// New constructs a detached Node with the given callback. cb may be nil.
func New(cb Callback) *Node {
	return &Node{cb: cb}
}

// Push attaches n as the child of parent. n must currently be detached,
// and parent must not already have a child — cpython/Objects/interruptobject.c's
// PyInterrupt_Push asserts point->parent->child == NULL before attaching,
// and this is the same programming-fault invariant (spec.md §7): a second
// concurrent child is a caller bug, not a condition to silently accept.
// If parent has already been signalled, n is signalled as soon as it is
// attached.
func (n *Node) Push(parent *Node) {
	if parent == nil {
		panic("interrupt: Push to a nil parent")
	}
	parent.mu.Lock()
	if parent.child != nil {
		parent.mu.Unlock()
		panic("interrupt: parent already has a child")
	}

	n.mu.Lock()
	if n.parent != nil {
		n.mu.Unlock()
		parent.mu.Unlock()
		panic("interrupt: Push on an already-attached node")
	}
	n.parent = parent
	n.mu.Unlock()

	parent.child = n
	parentSignalled := parent.Signalled()
	parent.mu.Unlock()

	// a Signal of parent that ran before n was linked did not reach n
	if parentSignalled {
		n.Signal()
	}
}

// Pop detaches n from its parent, if any. Safe to call on an already
// detached node (no-op).
func (n *Node) Pop() {
	n.mu.Lock()
	parent := n.parent
	n.parent = nil
	n.mu.Unlock()

	if parent == nil {
		return
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	if parent.child == n {
		parent.child = nil
	}
}

// Signalled reports whether n has been signalled (directly or via an
// ancestor).
func (n *Node) Signalled() bool { return n.signalled.Load() }

// Signal marks n (and its chain of descendants) as signalled and runs
// each node's callback exactly once, parent before child, with no lock
// held during any callback invocation (spec.md §4.5).
func (n *Node) Signal() {
	if !n.signalled.CompareAndSwap(false, true) {
		return // already signalled; idempotent
	}
	if n.cb != nil {
		n.cb()
	}

	n.mu.Lock()
	child := n.child
	n.mu.Unlock()

	if child != nil {
		child.Signal()
	}
}
