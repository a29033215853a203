package critical

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnterExitBasic(t *testing.T) {
	s := Allocate(DepthDefault)
	var tr Stack
	s.Enter(&tr)
	s.Exit(&tr)
}

func TestOrderedDepthsOK(t *testing.T) {
	// deeper (smaller depth) may be entered while a shallower one is held
	ref := Allocate(DepthWeakrefRef)
	handle := Allocate(DepthWeakrefHandle)
	queue := Allocate(DepthWeakrefQueue)

	var tr Stack
	ref.Enter(&tr)
	handle.Enter(&tr)
	queue.Enter(&tr)
	queue.Exit(&tr)
	handle.Exit(&tr)
	ref.Exit(&tr)
}

func TestLockOrderViolationPanics(t *testing.T) {
	handle := Allocate(DepthWeakrefHandle)
	ref := Allocate(DepthWeakrefRef)

	var tr Stack
	handle.Enter(&tr)
	require.Panics(t, func() { ref.Enter(&tr) })
}

func TestReenterSameDepthPanics(t *testing.T) {
	s := Allocate(DepthDefault)
	var tr Stack
	s.Enter(&tr)
	require.Panics(t, func() { s.Enter(&tr) })
}

func TestSuspendedEntryPanics(t *testing.T) {
	s := Allocate(DepthDefault)
	var tr Stack
	tr.SetSuspended(true)
	require.Panics(t, func() { s.Enter(&tr) })
}

func TestDummySectionAllowsSuspended(t *testing.T) {
	s := AllocateDummy(DepthDefault)
	var tr Stack
	tr.SetSuspended(true)
	s.Enter(&tr)
	s.Exit(&tr)
}

func TestExitByWrongTrackerPanics(t *testing.T) {
	s := Allocate(DepthDefault)
	var a, b Stack
	s.Enter(&a)
	require.Panics(t, func() { s.Exit(&b) })
}

func TestPopMismatchPanics(t *testing.T) {
	var tr Stack
	tr.PushDepth(5)
	require.Panics(t, func() { tr.PopDepth(6) })
}
