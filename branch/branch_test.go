package branch

import (
	"errors"
	"testing"

	"github.com/joeycumines/go-freethread/corerr"
	"github.com/joeycumines/go-freethread/threadstate"
	"github.com/stretchr/testify/require"
)

func TestBranchWaitReturnsNilWhenAllSucceed(t *testing.T) {
	b := New()
	for i := 0; i < 5; i++ {
		b.Add(func() error { return nil })
	}
	require.NoError(t, b.Wait())
	require.Equal(t, "DEAD", b.State())
}

func TestBranchWaitReturnsFirstError(t *testing.T) {
	b := New()
	errA := errors.New("a")
	b.Add(func() error { return errA })
	b.Add(func() error { return nil })
	require.ErrorIs(t, b.Wait(), errA)
}

func TestBranchAddAfterDeadPanics(t *testing.T) {
	b := New()
	require.NoError(t, b.Wait())
	require.Panics(t, func() { b.Add(func() error { return nil }) })
}

func TestBranchGetResultsInOrderWhenAllSucceed(t *testing.T) {
	b := New()
	b.AddResult(func() (any, error) { return 2, nil })
	b.AddResult(func() (any, error) { return 4, nil })
	b.AddResult(func() (any, error) { return 6, nil })

	results, err := b.GetResults()
	require.NoError(t, err)
	require.Equal(t, []any{2, 4, 6}, results)
}

func TestBranchGetResultsDiscardsResultsOnFailure(t *testing.T) {
	b := New()
	e := errors.New("boom")
	b.AddResult(func() (any, error) { return 1, nil })
	b.AddResult(func() (any, error) { return nil, e })

	results, err := b.GetResults()
	require.Nil(t, results)
	require.ErrorIs(t, err, e)
}

func TestBranchSelectsLoneNonInterruptedError(t *testing.T) {
	b := New()
	e := errors.New("zero division")
	b.Add(func() error { return corerr.Interrupted })
	b.Add(func() error { return e })

	err := b.Wait()
	require.Equal(t, e, err)
}

func TestBranchSelectsInterruptedWhenBranchItselfInterrupted(t *testing.T) {
	b := New()
	b.Add(func() error { return corerr.Interrupted })
	b.Add(func() error { return corerr.Interrupted })

	err := b.Wait()
	require.ErrorIs(t, err, corerr.Interrupted)
	require.True(t, b.Interrupted())
}

func TestBranchAggregatesMultipleNonInterruptedErrors(t *testing.T) {
	b := New()
	e1 := errors.New("zero division one")
	e2 := errors.New("zero division two")
	b.Add(func() error { return e1 })
	b.Add(func() error { return e2 })

	err := b.Wait()
	var agg *corerr.MultipleError
	require.ErrorAs(t, err, &agg)
	require.ErrorIs(t, err, e1)
	require.ErrorIs(t, err, e2)
	require.Len(t, agg.Errors, 2)
}

func TestBranchFailureSignalsBaseNode(t *testing.T) {
	b := New()
	require.False(t, b.Interrupted())
	b.Add(func() error { return errors.New("fails") })
	_ = b.Wait()
	require.True(t, b.Interrupted())
}

func TestCollateCollectsEveryResultInOrder(t *testing.T) {
	c := NewCollate()
	c.AddResult(func() (any, error) { return 1, nil })
	c.AddResult(func() (any, error) { return 2, nil })
	c.AddResult(func() (any, error) { return 3, nil })

	results, err := c.GetResults()
	require.NoError(t, err)
	require.Equal(t, []any{1, 2, 3}, results)
}

func TestCollateAggregatesEveryError(t *testing.T) {
	c := NewCollate()
	e1 := errors.New("one")
	e2 := errors.New("two")
	c.AddResult(func() (any, error) { return nil, e1 })
	c.AddResult(func() (any, error) { return "ok", nil })
	c.AddResult(func() (any, error) { return nil, e2 })

	results, err := c.GetResults()
	require.Error(t, err)
	require.ErrorIs(t, err, e1)
	require.ErrorIs(t, err, e2)
	require.Equal(t, []any{nil, "ok", nil}, results)
}

func TestBranchWithEntersAndExitsThreadState(t *testing.T) {
	rt := threadstate.NewRuntime()
	b := New()

	var sawID uint64
	b.With(rt, func(ts *threadstate.ThreadState) error {
		sawID = ts.ID()
		return nil
	})
	require.NoError(t, b.Wait())
	require.NotZero(t, sawID)
	require.Empty(t, rt.Snapshot())
}

func TestCollateWithCollectsValue(t *testing.T) {
	rt := threadstate.NewRuntime()
	c := NewCollate()

	c.With(rt, func(ts *threadstate.ThreadState) (any, error) {
		return ts.ID(), nil
	})

	results, err := c.GetResults()
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotZero(t, results[0])
}
