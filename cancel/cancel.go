package cancel

import (
	"sync"

	"github.com/joeycumines/go-freethread/corerr"
	"github.com/joeycumines/go-freethread/interrupt"
)

// Scope is one node in the user-facing cancellation tree (spec.md §4.6).
// The zero value is not usable; construct with New.
type Scope struct {
	node   *interrupt.Node
	parent *Scope

	mu      sync.Mutex
	entered int
}

// New constructs a detached, uncancelled Scope.
func New() *Scope {
	s := &Scope{}
	s.node = interrupt.New(nil)
	return s
}

// Push attaches s as a child of parent: cancelling parent also cancels s
// (spec.md §4.6's scope tree). Passing a nil parent leaves s as a root.
func (s *Scope) Push(parent *Scope) *Scope {
	if parent != nil {
		s.parent = parent
		s.node.Push(parent.node)
	}
	return s
}

// Pop detaches s from its parent. Safe to call more than once.
func (s *Scope) Pop() {
	s.node.Pop()
}

// Cancel marks s, and every descendant Scope, as cancelled.
func (s *Scope) Cancel() {
	s.node.Signal()
}

// Cancelled reports whether s (or an ancestor) has been cancelled.
func (s *Scope) Cancelled() bool {
	return s.node.Signalled()
}

// CheckCancelled returns corerr.Cancelled if s has been cancelled, nil
// otherwise. Cooperative code calls this at safepoints (spec.md §4.6,
// §7: raised into user code rather than panicking).
func (s *Scope) CheckCancelled() error {
	if s.node.Signalled() {
		return corerr.Cancelled
	}
	return nil
}

// SignalEnter marks the start of a cancellable operation within s. It
// returns false if s is already cancelled, in which case the caller must
// not proceed and should surface corerr.Cancelled instead. On success the
// caller must call SignalExit exactly once when the operation completes.
//
// This is the scope-owner-retry half of the signal-race contract
// (SPEC_FULL.md §5.4). Cancel does not take s.mu: it sets the scope
// node's atomic signalled flag, which SignalEnter reads under s.mu. A
// Cancel racing a SignalEnter therefore either lands first (SignalEnter
// observes Signalled and returns false) or after (the operation has been
// entered, and Cancel does not interrupt it — the entered operation
// re-checks CheckCancelled itself at its own next safepoint).
func (s *Scope) SignalEnter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.node.Signalled() {
		return false
	}
	s.entered++
	return true
}

// SignalExit marks the end of an operation started by a successful
// SignalEnter.
func (s *Scope) SignalExit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entered == 0 {
		panic("cancel: SignalExit without a matching SignalEnter")
	}
	s.entered--
}
