package interrupt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignalRunsOwnCallback(t *testing.T) {
	ran := false
	n := New(func() { ran = true })
	n.Signal()
	require.True(t, ran)
	require.True(t, n.Signalled())
}

func TestSignalPropagatesToChildren(t *testing.T) {
	root := New(nil)
	var order []string
	child := New(func() { order = append(order, "child") })
	grandchild := New(func() { order = append(order, "grandchild") })

	child.Push(root)
	grandchild.Push(child)

	root.Signal()

	require.True(t, child.Signalled())
	require.True(t, grandchild.Signalled())
	require.Equal(t, []string{"child", "grandchild"}, order)
}

func TestSignalIsIdempotent(t *testing.T) {
	calls := 0
	n := New(func() { calls++ })
	n.Signal()
	n.Signal()
	require.Equal(t, 1, calls)
}

func TestPopDetachesFromParent(t *testing.T) {
	root := New(nil)
	child := New(func() { t.Fatal("should not run: detached before Signal") })
	child.Push(root)
	child.Pop()

	root.Signal()
	require.False(t, child.Signalled())
}

func TestPushRejectsSecondConcurrentChild(t *testing.T) {
	root := New(nil)
	first := New(nil)
	second := New(nil)

	first.Push(root)
	require.Panics(t, func() { second.Push(root) })
}

func TestPushAfterPopAllowsNewChild(t *testing.T) {
	root := New(nil)
	first := New(nil)
	second := New(nil)

	first.Push(root)
	first.Pop()
	require.NotPanics(t, func() { second.Push(root) })
}

func TestPopIsIdempotent(t *testing.T) {
	root := New(nil)
	child := New(nil)
	child.Push(root)
	child.Pop()
	require.NotPanics(t, func() { child.Pop() })
}

func TestQueueAddFromParentAndFinish(t *testing.T) {
	var q Queue
	q.Init()

	root := New(nil)
	n := q.AddFromParent(root, nil)
	require.False(t, q.Pending())

	root.Signal()
	require.True(t, q.Pending())

	q.Finish(n)
	require.False(t, q.Pending())
}

func TestQueueAddRegistersExistingNode(t *testing.T) {
	var q Queue
	q.Init()

	n := New(nil)
	q.Add(n)
	n.Signal()
	require.True(t, q.Pending())
}
