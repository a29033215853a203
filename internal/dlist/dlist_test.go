package dlist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushBackOrder(t *testing.T) {
	l := New[int]()
	l.PushBack(1)
	l.PushBack(2)
	l.PushBack(3)
	require.Equal(t, []int{1, 2, 3}, l.Values())
	require.Equal(t, 3, l.Len())
}

func TestPushFront(t *testing.T) {
	l := New[string]()
	l.PushBack("b")
	l.PushFront("a")
	l.PushBack("c")
	require.Equal(t, []string{"a", "b", "c"}, l.Values())
}

func TestRemoveIdempotent(t *testing.T) {
	l := New[int]()
	n := l.PushBack(1)
	l.PushBack(2)
	require.Equal(t, 2, l.Len())

	l.Remove(n)
	require.Equal(t, 1, l.Len())
	require.False(t, n.Linked())

	// removing twice is a no-op, matching DeathQueueHandle.cancel's
	// idempotent-removal contract.
	l.Remove(n)
	require.Equal(t, 1, l.Len())
}

func TestRemoveDuringEach(t *testing.T) {
	l := New[int]()
	var nodes []*Node[int]
	for i := 0; i < 5; i++ {
		nodes = append(nodes, l.PushBack(i))
	}

	l.Each(func(n *Node[int]) {
		if n.Value()%2 == 0 {
			l.Remove(n)
		}
	})

	require.Equal(t, []int{1, 3}, l.Values())
}

func TestEmptyList(t *testing.T) {
	l := New[int]()
	require.Equal(t, 0, l.Len())
	require.Nil(t, l.Front())
	require.Empty(t, l.Values())
}

func TestZeroValueListUsable(t *testing.T) {
	var l List[int]
	l.PushBack(42)
	require.Equal(t, []int{42}, l.Values())
}
