package monitor

import (
	"sync"
	"time"
)

// Thread is the view of a calling thread MonitorSpace needs: a stable
// identity used to detect self-reentrant Enter calls (always a
// programming fault for a MonitorSpace, per spec.md §4.7).
type Thread interface {
	ID() uint64
}

const defaultDeadlockDelay = 2 * time.Second

// MonitorSpace is a mutual-exclusion domain bound to one logical object
// for its lifetime (spec.md §4.7). The zero value is not usable;
// construct with NewSpace.
type MonitorSpace struct {
	mu sync.Mutex

	holderMu      sync.Mutex
	holder        uint64
	hasHolder     bool
	deadlockDelay time.Duration
}

// NewSpace constructs an unheld MonitorSpace with the default deadlock
// delay.
func NewSpace() *MonitorSpace {
	return &MonitorSpace{deadlockDelay: defaultDeadlockDelay}
}

// SetDeadlockDelay configures how long GetDeadlockDelay reports callers
// should wait before treating contention on this MonitorSpace as a
// likely deadlock (SPEC_FULL.md §5.1). It does not change Enter's
// blocking behavior; it is advisory information for a caller-side
// watchdog.
func (m *MonitorSpace) SetDeadlockDelay(d time.Duration) {
	m.holderMu.Lock()
	defer m.holderMu.Unlock()
	m.deadlockDelay = d
}

// GetDeadlockDelay returns the currently configured deadlock delay.
func (m *MonitorSpace) GetDeadlockDelay() time.Duration {
	m.holderMu.Lock()
	defer m.holderMu.Unlock()
	return m.deadlockDelay
}

// GetCurrent returns the id of the thread currently holding m, and
// whether any thread holds it at all.
func (m *MonitorSpace) GetCurrent() (id uint64, held bool) {
	m.holderMu.Lock()
	defer m.holderMu.Unlock()
	return m.holder, m.hasHolder
}

// Enter acquires m on behalf of t, blocking until available. Calling
// Enter again from the same thread while it already holds m is a
// self-deadlock and panics immediately rather than blocking forever
// (spec.md §7: a detectable programming fault, not a runtime hang).
func (m *MonitorSpace) Enter(t Thread) {
	if id, held := m.GetCurrent(); held && id == t.ID() {
		panic("monitor: re-entrant Enter by the current holder")
	}
	m.mu.Lock()
	m.holderMu.Lock()
	m.holder, m.hasHolder = t.ID(), true
	m.holderMu.Unlock()
}

// Exit releases m. It panics if called by a thread other than the
// current holder.
func (m *MonitorSpace) Exit(t Thread) {
	m.holderMu.Lock()
	if !m.hasHolder || m.holder != t.ID() {
		m.holderMu.Unlock()
		panic("monitor: Exit called by a thread that does not hold the space")
	}
	m.hasHolder = false
	m.holderMu.Unlock()
	m.mu.Unlock()
}

// Monitor pairs a MonitorSpace with a value of type T constructed lazily
// on first Enter (spec.md §4.7: the guarded value springs into existence
// the first time anything actually needs mutual exclusion over it).
type Monitor[T any] struct {
	space MonitorSpace
	once  sync.Once
	ctor  func() T
	value T
}

// New constructs a Monitor[T] whose guarded value is built by ctor the
// first time Enter is called.
func New[T any](ctor func() T) *Monitor[T] {
	return &Monitor[T]{space: MonitorSpace{deadlockDelay: defaultDeadlockDelay}, ctor: ctor}
}

// Enter acquires the Monitor's space and returns the guarded value,
// constructing it via ctor if this is the first Enter.
func (m *Monitor[T]) Enter(t Thread) T {
	m.space.Enter(t)
	m.once.Do(func() { m.value = m.ctor() })
	return m.value
}

// Exit releases the Monitor's space.
func (m *Monitor[T]) Exit(t Thread) {
	m.space.Exit(t)
}

// Space returns the underlying MonitorSpace, for SetDeadlockDelay/GetCurrent.
func (m *Monitor[T]) Space() *MonitorSpace { return &m.space }
