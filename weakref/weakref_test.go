package weakref

import (
	"testing"
	"time"

	"github.com/joeycumines/go-freethread/refcount"
	"github.com/stretchr/testify/require"
)

// fakeThread is a minimal refcount.Thread for tests that don't need
// threadstate's full Enter/Exit lifecycle (same shape as
// refcount's own refcount_test fakeThread).
type fakeThread struct {
	id     uint64
	depths []int
}

func (f *fakeThread) ID() uint64 { return f.id }
func (f *fakeThread) CurrentDepth() int {
	if len(f.depths) == 0 {
		return 1 << 30
	}
	return f.depths[len(f.depths)-1]
}
func (f *fakeThread) PushDepth(d int) { f.depths = append(f.depths, d) }
func (f *fakeThread) PopDepth(d int) {
	if len(f.depths) == 0 || f.depths[len(f.depths)-1] != d {
		panic("fakeThread: depth mismatch")
	}
	f.depths = f.depths[:len(f.depths)-1]
}
func (f *fakeThread) Suspended() bool { return false }

type target struct{ n int }

func (t *target) Finalize() {}

func TestRefValueWhileAlive(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{n: 42}
	h := refcount.New(obj, th)

	r, installed := NewRef(h, obj)
	require.True(t, installed)
	require.Equal(t, obj, r.Value(th))
}

func TestRefValueNilAfterFinalize(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{n: 42}
	h := refcount.New(obj, th)

	r, _ := NewRef(h, obj)
	h.Decref(th)

	require.Nil(t, r.Value(th))
}

func TestRefUniquePerHandle(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{}
	h := refcount.New(obj, th)

	r1, installed1 := NewRef(h, obj)
	r2, installed2 := NewRef(h, obj)
	require.True(t, installed1)
	require.False(t, installed2)
	require.Same(t, r1, r2)
}

func TestBindingGetWhileAlive(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{n: 7}
	h := refcount.New(obj, th)
	r, _ := NewRef(h, obj)

	b := NewBinding(th, r, "payload")
	got, val := b.Get(th)
	require.Equal(t, obj, got)
	require.Equal(t, "payload", val)
}

func TestBindingGetNilAfterFinalize(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{}
	h := refcount.New(obj, th)
	r, _ := NewRef(h, obj)

	b := NewBinding(th, r, "payload")
	h.Decref(th)

	got, val := b.Get(th)
	require.Nil(t, got)
	require.Nil(t, val)
}

func TestDeathQueueTryPopEmpty(t *testing.T) {
	dq := NewDeathQueue(nil)
	_, ok := dq.TryPop()
	require.False(t, ok)
	require.False(t, dq.Pending())
}

func TestDeathQueueWaitTimesOut(t *testing.T) {
	dq := NewDeathQueue(nil)
	_, ok := dq.Wait(10 * time.Millisecond)
	require.False(t, ok)
}

func TestWatchFiresOnFinalize(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{}
	h := refcount.New(obj, th)
	r, _ := NewRef(h, obj)

	dq := NewDeathQueue(nil)
	Watch(dq, th, r, "gone")

	require.False(t, dq.Pending())
	h.Decref(th)
	require.True(t, dq.Pending())

	v, ok := dq.TryPop()
	require.True(t, ok)
	require.Equal(t, "gone", v)
}

func TestWatchAfterFinalizeGoesStraightToDead(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{}
	h := refcount.New(obj, th)
	r, _ := NewRef(h, obj)
	h.Decref(th)

	dq := NewDeathQueue(nil)
	Watch(dq, th, r, "already gone")

	v, ok := dq.TryPop()
	require.True(t, ok)
	require.Equal(t, "already gone", v)
}

func TestDeathQueueWaitObservesFinalize(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{}
	h := refcount.New(obj, th)
	r, _ := NewRef(h, obj)

	dq := NewDeathQueue(nil)
	Watch(dq, th, r, "woke")

	go func() {
		time.Sleep(5 * time.Millisecond)
		h.Decref(th)
	}()

	v, ok := dq.Wait(500 * time.Millisecond)
	require.True(t, ok)
	require.Equal(t, "woke", v)
}

func TestCancelPreventsNotification(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{}
	h := refcount.New(obj, th)
	r, _ := NewRef(h, obj)

	dq := NewDeathQueue(nil)
	handle := Watch(dq, th, r, "gone")
	require.NoError(t, dq.Cancel(th, handle))

	h.Decref(th)
	require.False(t, dq.Pending())
}

func TestCancelIsIdempotent(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{}
	h := refcount.New(obj, th)
	r, _ := NewRef(h, obj)

	dq := NewDeathQueue(nil)
	handle := Watch(dq, th, r, "x")
	require.NoError(t, dq.Cancel(th, handle))
	require.NoError(t, dq.Cancel(th, handle))
}

func TestCancelAfterPopIsNoop(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{}
	h := refcount.New(obj, th)
	r, _ := NewRef(h, obj)

	dq := NewDeathQueue(nil)
	handle := Watch(dq, th, r, "gone")
	h.Decref(th)

	_, ok := dq.TryPop()
	require.True(t, ok)
	require.NoError(t, dq.Cancel(th, handle))
}

func TestCancelAgainstWrongQueueRaises(t *testing.T) {
	th := &fakeThread{id: 1}
	obj := &target{}
	h := refcount.New(obj, th)
	r, _ := NewRef(h, obj)

	dq1 := NewDeathQueue(nil)
	dq2 := NewDeathQueue(nil)
	handle := Watch(dq1, th, r, "x")
	require.Error(t, dq2.Cancel(th, handle))
}
