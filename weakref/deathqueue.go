package weakref

import (
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-freethread/corelog"
	"github.com/joeycumines/go-freethread/corerr"
	"github.com/joeycumines/go-freethread/critical"
	"github.com/joeycumines/go-freethread/internal/dlist"
	"github.com/joeycumines/go-freethread/refcount"
)

// DeathQueue is a queue of post-mortem notifications: rather than running
// a callback at the moment a target's refcount.Handle finalizes (which
// would run inline, under whatever critical sections the dealloc path
// already holds), each death moves a DeathQueueHandle from the live list
// to the dead list and a consumer thread drains dead on its own schedule
// (spec.md §4.7).
type DeathQueue struct {
	sec *critical.Section // WEAKREF_QUEUE; mu/cond is the real lock

	mu   sync.Mutex
	cond *sync.Cond
	live *dlist.List[*DeathQueueHandle]
	dead *dlist.List[*DeathQueueHandle]

	logger   corelog.Logger
	churnLog *catrate.Limiter
}

// NewDeathQueue constructs an empty DeathQueue. logger may be nil.
func NewDeathQueue(logger corelog.Logger) *DeathQueue {
	dq := &DeathQueue{
		sec:      critical.AllocateDummy(critical.DepthWeakrefQueue),
		live:     dlist.New[*DeathQueueHandle](),
		dead:     dlist.New[*DeathQueueHandle](),
		logger:   logger,
		churnLog: catrate.NewLimiter(map[time.Duration]int{time.Second: 10}),
	}
	dq.cond = sync.NewCond(&dq.mu)
	return dq
}

type handleState int

const (
	handleLive handleState = iota
	handleDead
	handlePopped
	handleCancelled
)

// DeathQueueHandle represents one watch registration: the queue holds a
// strong reference to it, and it holds the payload plus a link back to
// the Ref it watches (spec.md §4.7's data model).
type DeathQueueHandle struct {
	sec *critical.Section // WEAKREF_HANDLE; mu is the real lock

	mu      sync.Mutex
	queue   *DeathQueue
	payload any
	state   handleState

	refElem       *dlist.Node[*DeathQueueHandle]
	queueElem     *dlist.Node[*DeathQueueHandle]
	detachFromRef func(t refcount.Thread)
}

// Watch registers ref with dq: once ref's target finalizes, payload
// becomes available via Pop/TryPop/Wait (spec.md §4.7). payload must be
// shareable per spec.md's shared-resource policy — the same boundary
// Branch submit and SharedDict item assignment enforce — the caller is
// responsible for that.
func Watch[T any](dq *DeathQueue, t refcount.Thread, ref *Ref[T], payload any) *DeathQueueHandle {
	h := &DeathQueueHandle{
		sec:     critical.AllocateDummy(critical.DepthWeakrefHandle),
		queue:   dq,
		payload: payload,
	}
	h.detachFromRef = func(t refcount.Thread) { ref.detach(t, h) }

	dead := ref.attach(t, h)

	dq.sec.Enter(t)
	dq.mu.Lock()
	if dead {
		h.state = handleDead
		h.queueElem = dq.dead.PushBack(h)
		dq.cond.Broadcast()
	} else {
		h.state = handleLive
		h.queueElem = dq.live.PushBack(h)
	}
	dq.mu.Unlock()
	dq.sec.Exit(t)

	if dead {
		dq.logDeath()
	}
	return h
}

// moveToDead transitions h from live to dead and wakes any waiter. It is
// a no-op if h is not currently live (already cancelled).
func (h *DeathQueueHandle) moveToDead(t refcount.Thread) {
	h.sec.Enter(t)
	h.mu.Lock()
	if h.state != handleLive {
		h.mu.Unlock()
		h.sec.Exit(t)
		return
	}
	h.state = handleDead
	dq := h.queue
	queueElem := h.queueElem
	h.mu.Unlock()
	h.sec.Exit(t)

	dq.sec.Enter(t)
	dq.mu.Lock()
	dq.live.Remove(queueElem)
	newElem := dq.dead.PushBack(h)
	dq.cond.Broadcast()
	dq.mu.Unlock()
	dq.sec.Exit(t)

	h.mu.Lock()
	h.queueElem = newElem
	h.mu.Unlock()

	dq.logDeath()
}

// Cancel idempotently removes h from whichever of dq's lists holds it,
// and is a no-op if h has already been cancelled or already popped
// (spec.md §4.7). Calling Cancel with a handle belonging to a different
// queue raises a corerr.ValueError.
func (dq *DeathQueue) Cancel(t refcount.Thread, h *DeathQueueHandle) error {
	if h.queue != dq {
		return &corerr.ValueError{Message: "weakref: handle does not belong to this queue"}
	}

	h.sec.Enter(t)
	h.mu.Lock()
	state := h.state
	if state == handleCancelled || state == handlePopped {
		h.mu.Unlock()
		h.sec.Exit(t)
		return nil
	}
	h.state = handleCancelled
	queueElem := h.queueElem
	detach := h.detachFromRef
	h.mu.Unlock()
	h.sec.Exit(t)

	if state == handleLive && detach != nil {
		detach(t)
	}

	dq.sec.Enter(t)
	dq.mu.Lock()
	if state == handleLive {
		dq.live.Remove(queueElem)
	} else {
		dq.dead.Remove(queueElem)
	}
	dq.mu.Unlock()
	dq.sec.Exit(t)
	return nil
}

// logDeath emits a rate-limited diagnostic. Correctness never depends on
// the limiter: every death always moves to dead and always wakes a
// waiter — the limiter only throttles how often a high-churn diagnostic
// is logged, per SPEC_FULL.md's catrate wiring note.
func (dq *DeathQueue) logDeath() {
	if _, ok := dq.churnLog.Allow("death"); ok {
		corelog.Emit(dq.logger, corelog.Entry{
			Level: corelog.LevelDebug, Component: "weakref",
			Message: "death queue received a notification",
		})
	}
}

// Pending reports whether dq currently holds a dead, unpopped
// notification — the non-blocking `bool(queue)` check spec.md §4.7
// describes.
func (dq *DeathQueue) Pending() bool {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	return dq.dead.Len() > 0
}

// TryPop removes and returns the oldest dead handle's payload without
// blocking. ok is false if dead is empty.
func (dq *DeathQueue) TryPop() (payload any, ok bool) {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	e := dq.dead.Front()
	if e == nil {
		return nil, false
	}
	h := e.Value()
	dq.dead.Remove(e)
	h.mu.Lock()
	h.state = handlePopped
	payload = h.payload
	h.mu.Unlock()
	return payload, true
}

// Pop blocks until a dead notification is available and returns its
// payload.
func (dq *DeathQueue) Pop() any {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	for dq.dead.Front() == nil {
		dq.cond.Wait()
	}
	e := dq.dead.Front()
	h := e.Value()
	dq.dead.Remove(e)
	h.mu.Lock()
	h.state = handlePopped
	payload := h.payload
	h.mu.Unlock()
	return payload
}

// Wait blocks until a dead notification is available or timeout elapses,
// whichever comes first.
func (dq *DeathQueue) Wait(timeout time.Duration) (payload any, ok bool) {
	deadline := time.Now().Add(timeout)

	dq.mu.Lock()
	defer dq.mu.Unlock()
	for dq.dead.Front() == nil {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}
		timer := time.AfterFunc(remaining, func() {
			dq.mu.Lock()
			dq.cond.Broadcast()
			dq.mu.Unlock()
		})
		dq.cond.Wait()
		timer.Stop()
	}
	e := dq.dead.Front()
	h := e.Value()
	dq.dead.Remove(e)
	h.mu.Lock()
	h.state = handlePopped
	payload = h.payload
	h.mu.Unlock()
	return payload, true
}
