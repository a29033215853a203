package branch

import "sync/atomic"

// lifecycleState is the NEW/ALIVE/DYING/DEAD state machine shared by
// Branch and Collate (spec.md §4.9).
type lifecycleState int32

const (
	stateNew lifecycleState = iota
	stateAlive
	stateDying
	stateDead
)

func (s lifecycleState) String() string {
	switch s {
	case stateNew:
		return "NEW"
	case stateAlive:
		return "ALIVE"
	case stateDying:
		return "DYING"
	case stateDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

type lifecycle struct {
	v atomic.Int32
}

func newLifecycle() *lifecycle {
	l := &lifecycle{}
	l.v.Store(int32(stateAlive))
	return l
}

func (l *lifecycle) state() lifecycleState { return lifecycleState(l.v.Load()) }

func (l *lifecycle) requireAlive() {
	if l.state() != stateAlive {
		panic("branch: Add called after the scope started draining")
	}
}

func (l *lifecycle) beginDraining() {
	l.v.Store(int32(stateDying))
}

func (l *lifecycle) finishDraining() {
	l.v.Store(int32(stateDead))
}
