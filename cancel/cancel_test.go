package cancel

import (
	"errors"
	"testing"

	"github.com/joeycumines/go-freethread/corerr"
	"github.com/stretchr/testify/require"
)

func TestCheckCancelledBeforeAndAfterCancel(t *testing.T) {
	s := New()
	require.NoError(t, s.CheckCancelled())
	s.Cancel()
	require.True(t, errors.Is(s.CheckCancelled(), corerr.Cancelled))
}

func TestChildScopeSeesParentCancel(t *testing.T) {
	parent := New()
	child := New().Push(parent)

	require.False(t, child.Cancelled())
	parent.Cancel()
	require.True(t, child.Cancelled())
}

func TestPopDetachesFromParentScope(t *testing.T) {
	parent := New()
	child := New().Push(parent)
	child.Pop()

	parent.Cancel()
	require.False(t, child.Cancelled())
}

func TestSignalEnterRejectsAfterCancel(t *testing.T) {
	s := New()
	require.True(t, s.SignalEnter())
	s.SignalExit()

	s.Cancel()
	require.False(t, s.SignalEnter())
}

func TestSignalExitWithoutEnterPanics(t *testing.T) {
	s := New()
	require.Panics(t, func() { s.SignalExit() })
}
