package interrupt

import (
	"sync"

	"github.com/joeycumines/go-freethread/internal/dlist"
)

// Queue is the per-ThreadState registry of interrupt Nodes a cooperative
// safepoint walks to check for pending signals (spec.md §4.5). Unlike a
// Node's single child link (which exists purely for propagation), Queue
// exists so a single thread can ask "is anything relevant to me
// signalled?" without walking the whole tree from its root every time.
type Queue struct {
	mu    sync.Mutex
	nodes *dlist.List[*Node]
}

// Init prepares q for use. The zero value is not usable.
func (q *Queue) Init() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nodes = dlist.New[*Node]()
}

// Add registers an existing Node with the queue; it does not attach n to
// any parent, only makes it visible to Pending/Finish.
func (q *Queue) Add(n *Node) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n.queueElem = q.nodes.PushBack(n)
}

// AddFromParent constructs a new child Node of parent with the given
// callback, registers it with the queue, and returns it. This is the
// common case: a thread entering a cancellable region creates one Node
// under the relevant ancestor and tracks it in its own Queue.
func (q *Queue) AddFromParent(parent *Node, cb Callback) *Node {
	n := New(cb)
	n.Push(parent)
	q.Add(n)
	return n
}

// Finish removes n from the queue and detaches it from its parent. Safe
// to call more than once.
func (q *Queue) Finish(n *Node) {
	n.Pop()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.nodes != nil && n.queueElem != nil {
		q.nodes.Remove(n.queueElem)
		n.queueElem = nil
	}
}

// Pending reports whether any Node currently registered in the queue has
// been signalled, the check a Tick-style safepoint makes.
func (q *Queue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := false
	q.nodes.Each(func(e *dlist.Node[*Node]) {
		if e.Value().Signalled() {
			pending = true
		}
	})
	return pending
}
