package threadstate

import (
	"sync/atomic"
)

// AttachState represents where a ThreadState sits in the attach/detach,
// suspend/resume lifecycle described in spec.md §4.2.
//
// State Machine:
//
//	Detached (0) -> Attached (1)    [Enter()]
//	Attached (1) -> Suspended (2)   [Suspend() via CAS]
//	Suspended (2) -> Attached (1)   [Resume() via CAS]
//	Attached (1) -> Detaching (3)   [outermost Exit() begins teardown]
//	Detaching (3) -> Detached (0)   [teardown complete]
//
// This is the same lock-free CAS state-machine shape as eventloop's
// FastState (grounded on eventloop/state.go), generalized from the event
// loop's Awake/Running/Sleeping/Terminating/Terminated states to the
// thread-attach lifecycle spec.md §4.2 describes.
type AttachState uint32

const (
	Detached AttachState = iota
	Attached
	Suspended
	Detaching
)

func (s AttachState) String() string {
	switch s {
	case Detached:
		return "Detached"
	case Attached:
		return "Attached"
	case Suspended:
		return "Suspended"
	case Detaching:
		return "Detaching"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding, carried
// in spirit from eventloop.FastState: pure atomic CAS, no mutex, padded to
// avoid false sharing between cores, since every non-dummy
// critical.Section Enter reads the thread's attach state through Suspended.
type fastState struct { // betteralign:ignore
	_ [64]byte //nolint:unused
	v atomic.Uint32
	_ [60]byte //nolint:unused
}

func newFastState(initial AttachState) *fastState {
	s := &fastState{}
	s.v.Store(uint32(initial))
	return s
}

func (s *fastState) Load() AttachState { return AttachState(s.v.Load()) }

func (s *fastState) Store(state AttachState) { s.v.Store(uint32(state)) }

func (s *fastState) TryTransition(from, to AttachState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

func (s *fastState) IsSuspended() bool { return s.Load() == Suspended }
