package corelog

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNopLoggerDiscardsEverything(t *testing.T) {
	l := Nop()
	require.False(t, l.IsEnabled(LevelError))
	// should not panic even though nothing is written anywhere
	Emit(l, Entry{Level: LevelError, Message: "boom"})
}

func TestEmitNilLoggerIsSafe(t *testing.T) {
	require.NotPanics(t, func() {
		Emit(nil, Entry{Level: LevelInfo, Message: "hi"})
	})
}

func TestZerologLoggerRespectsLevel(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()

	l := New(f, LevelWarn)
	require.False(t, l.IsEnabled(LevelDebug))
	require.True(t, l.IsEnabled(LevelError))
}

func TestZerologLoggerWithMergesFields(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()

	l := New(f, LevelDebug)
	child := l.With(map[string]any{"thread": uint64(7)})
	Emit(child, Entry{Level: LevelInfo, Component: "threadstate", Message: "entered"})

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	require.True(t, bytes.Contains(data, []byte(`"thread":7`)))
	require.True(t, bytes.Contains(data, []byte(`"component":"threadstate"`)))
}
