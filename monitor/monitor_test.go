package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeThread uint64

func (f fakeThread) ID() uint64 { return uint64(f) }

func TestEnterExitReleasesForNextHolder(t *testing.T) {
	s := NewSpace()
	s.Enter(fakeThread(1))
	_, held := s.GetCurrent()
	require.True(t, held)
	s.Exit(fakeThread(1))
	_, held = s.GetCurrent()
	require.False(t, held)
}

func TestReentrantEnterPanics(t *testing.T) {
	s := NewSpace()
	s.Enter(fakeThread(1))
	require.Panics(t, func() { s.Enter(fakeThread(1)) })
}

func TestExitByWrongThreadPanics(t *testing.T) {
	s := NewSpace()
	s.Enter(fakeThread(1))
	require.Panics(t, func() { s.Exit(fakeThread(2)) })
	s.Exit(fakeThread(1))
}

func TestDeadlockDelayDefaultAndOverride(t *testing.T) {
	s := NewSpace()
	require.Equal(t, defaultDeadlockDelay, s.GetDeadlockDelay())
	s.SetDeadlockDelay(5 * time.Second)
	require.Equal(t, 5*time.Second, s.GetDeadlockDelay())
}

func TestMonitorLazilyConstructsValue(t *testing.T) {
	constructed := 0
	m := New(func() *int {
		constructed++
		v := 42
		return &v
	})

	v1 := m.Enter(fakeThread(1))
	m.Exit(fakeThread(1))
	v2 := m.Enter(fakeThread(2))
	m.Exit(fakeThread(2))

	require.Equal(t, 1, constructed)
	require.Same(t, v1, v2)
}

func TestMonitorBlocksConcurrentEntry(t *testing.T) {
	m := New(func() int { return 0 })
	m.Enter(fakeThread(1))

	entered := make(chan struct{})
	go func() {
		m.Enter(fakeThread(2))
		close(entered)
		m.Exit(fakeThread(2))
	}()

	select {
	case <-entered:
		t.Fatal("second Enter should block while first holds the monitor")
	case <-time.After(20 * time.Millisecond):
	}

	m.Exit(fakeThread(1))
	<-entered
}
