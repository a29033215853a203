package shareddict

import (
	"errors"
	"testing"

	"github.com/joeycumines/go-freethread/corerr"
	"github.com/joeycumines/go-freethread/threadstate"
	"github.com/stretchr/testify/require"
)

func TestSetThenGet(t *testing.T) {
	d := New[string, int](100)
	require.NoError(t, d.Set("a", 1))
	v, ok := d.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestGetMissingKey(t *testing.T) {
	d := New[string, int](100)
	_, ok := d.Get("missing")
	require.False(t, ok)
}

func TestSetRejectsNonShareableValue(t *testing.T) {
	d := New[string, any](100)
	var te *corerr.TypeError
	err := d.Set("f", func() {})
	require.True(t, errors.As(err, &te))
}

func TestSetRejectsChannelValue(t *testing.T) {
	d := New[string, any](100)
	err := d.Set("c", make(chan int))
	require.Error(t, err)
}

func TestReadStreakPromotesToReadOnly(t *testing.T) {
	d := New[string, int](3)
	require.NoError(t, d.Set("a", 1))

	for i := 0; i < 3; i++ {
		d.Get("a")
	}
	require.True(t, d.ReadOnly())
}

func TestSetAfterPromotionFailsWithoutStopTheWorldWired(t *testing.T) {
	d := New[string, int](1)
	require.NoError(t, d.Set("a", 1))
	d.Get("a") // triggers promotion at threshold 1

	err := d.Set("b", 2)
	var ve *corerr.ValueError
	require.True(t, errors.As(err, &ve))
}

func TestSetAfterPromotionDemotesWhenStopTheWorldWired(t *testing.T) {
	rt := threadstate.NewRuntime()
	d := New[string, int](1, WithStopTheWorld[string, int](rt))
	require.NoError(t, d.Set("a", 1))
	d.Get("a") // triggers promotion at threshold 1
	require.True(t, d.ReadOnly())

	require.NoError(t, d.Set("b", 2))
	require.False(t, d.ReadOnly())
	v, ok := d.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, v)

	require.NoError(t, d.Delete("a"))
	_, ok = d.Get("a")
	require.False(t, ok)
}

func TestDeleteResetsReadStreak(t *testing.T) {
	d := New[string, int](2)
	require.NoError(t, d.Set("a", 1))
	d.Get("a")
	require.NoError(t, d.Delete("a"))
	d.Get("missing")
	require.False(t, d.ReadOnly())
}

func TestLenReflectsEntries(t *testing.T) {
	d := New[string, int](100)
	require.Equal(t, 0, d.Len())
	require.NoError(t, d.Set("a", 1))
	require.NoError(t, d.Set("b", 2))
	require.Equal(t, 2, d.Len())
}

func TestNewPanicsOnNonPositiveThreshold(t *testing.T) {
	require.Panics(t, func() { New[string, int](0) })
}

func TestSortedKeysOrdersAscending(t *testing.T) {
	d := New[string, int](100)
	require.NoError(t, d.Set("c", 3))
	require.NoError(t, d.Set("a", 1))
	require.NoError(t, d.Set("b", 2))
	require.Equal(t, []string{"a", "b", "c"}, SortedKeys(d))
}

func TestSortedKeysAfterPromotion(t *testing.T) {
	d := New[string, int](1)
	require.NoError(t, d.Set("b", 2))
	d.Get("b") // triggers promotion at threshold 1
	require.Error(t, d.Set("a", 2)) // rejected: already read-only

	require.Equal(t, []string{"b"}, SortedKeys(d))
}
