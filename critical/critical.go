package critical

import (
	"fmt"
	"sync"
)

// Fixed depths for the hierarchies named in spec.md §4.1. Smaller values
// are deeper (may be entered while a shallower section is already held).
const (
	DepthWeakrefQueue  = 0
	DepthWeakrefHandle = 1
	DepthWeakrefRef    = 2

	DepthDefault = 0

	DepthDealloc = 100
)

// DepthTracker is implemented by the per-goroutine execution context (see
// threadstate.ThreadState) that owns the stack of currently-held critical
// section depths. critical sits below threadstate in the dependency
// order (spec.md §2), so it depends only on this interface, never on the
// concrete ThreadState type.
type DepthTracker interface {
	// CurrentDepth returns the depth of the most-recently-entered section
	// still held, or a sentinel value greater than any real depth if none
	// is held.
	CurrentDepth() int
	// PushDepth records that a section at depth d has just been entered.
	PushDepth(d int)
	// PopDepth removes the most recently pushed depth. It panics if the
	// given depth does not match the top of the stack, mirroring the
	// "popping a section that is not the current top" programming fault
	// in spec.md §7.
	PopDepth(d int)
	// Suspended reports whether the tracker's thread is currently
	// suspended (see threadstate.Suspend); entering a non-dummy section
	// while suspended is a programming fault.
	Suspended() bool
}

// NoDepthHeld is the sentinel CurrentDepth value meaning "no section is
// currently held by this tracker".
const NoDepthHeld = int(^uint(0) >> 1) // max int

// Section is an ordered short lock with a fixed depth, as described in
// spec.md §4.1. The zero value is not usable; construct with Allocate.
type Section struct {
	depth int
	mu    sync.Mutex
	dummy bool

	heldBy DepthTracker
}

// Allocate constructs a Section at the given depth. Depth ordering is only
// meaningful relative to other sections entered by the same tracker, so
// any non-negative depth is legal; use the Depth* constants for the three
// fixed hierarchies the core itself relies on.
func Allocate(depth int) *Section {
	return &Section{depth: depth}
}

// AllocateDummy returns a dummy critical section: entering it blocks
// threadstate's stop-the-world mechanism (by marking the tracker as
// holding a section) without providing any actual mutual exclusion. It may
// only be entered by its own owning goroutine, and unlike a real Section
// may be entered while suspended is true elsewhere — see spec.md §4.1.
func AllocateDummy(depth int) *Section {
	return &Section{depth: depth, dummy: true}
}

// Depth returns the section's configured depth.
func (s *Section) Depth() int { return s.depth }

// Enter acquires the section under the given tracker. It panics (a
// programming fault, per spec.md §7) if:
//   - the tracker is currently suspended and this is not a dummy section;
//   - a section is already held whose depth is <= this section's depth
//     (lock-order inversion, or re-entering the same section).
func (s *Section) Enter(t DepthTracker) {
	if !s.dummy && t.Suspended() {
		panic("critical: entering a critical section while suspended")
	}
	if held := t.CurrentDepth(); held != NoDepthHeld && held <= s.depth {
		panic(fmt.Sprintf("critical: lock-order violation: held depth %d, entering depth %d", held, s.depth))
	}
	if !s.dummy {
		s.mu.Lock()
	}
	s.heldBy = t
	t.PushDepth(s.depth)
}

// Exit releases the section. It panics if called by a tracker other than
// the one that entered it, or if it isn't currently held, mirroring the
// "popping a critical section that is not current top" programming fault.
func (s *Section) Exit(t DepthTracker) {
	if s.heldBy != t {
		panic("critical: exit called by non-holding tracker")
	}
	t.PopDepth(s.depth)
	s.heldBy = nil
	if !s.dummy {
		s.mu.Unlock()
	}
}

// Free releases any resources held by the section. Sections carry no
// extra resources beyond the mutex, so Free is a no-op retained for API
// symmetry with the original PyCritical's allocate/free pairing (spec.md
// §6 "Critical: Allocate(depth) → Critical*, Enter/Exit, Free").
func (s *Section) Free() {}

// Stack is a minimal DepthTracker implementation usable standalone (e.g.
// from tests exercising critical in isolation); threadstate.ThreadState
// implements the same interface directly over its own fields.
type Stack struct {
	depths    []int
	suspended bool
}

func (s *Stack) CurrentDepth() int {
	if len(s.depths) == 0 {
		return NoDepthHeld
	}
	return s.depths[len(s.depths)-1]
}

func (s *Stack) PushDepth(d int) { s.depths = append(s.depths, d) }

func (s *Stack) PopDepth(d int) {
	if len(s.depths) == 0 || s.depths[len(s.depths)-1] != d {
		panic("critical: pop depth mismatch")
	}
	s.depths = s.depths[:len(s.depths)-1]
}

func (s *Stack) Suspended() bool { return s.suspended }

// SetSuspended is used by threadstate.Suspend/Resume analogues in tests.
func (s *Stack) SetSuspended(v bool) { s.suspended = v }
