package branch

import (
	"runtime"

	"github.com/joeycumines/go-freethread/corelog"
	"github.com/joeycumines/go-freethread/threadstate"
	"golang.org/x/sys/unix"
)

// With spawns fn as a Branch child on its own pinned OS thread, entering
// rt first and exiting it after fn returns (spec.md §4.2: a ThreadState
// belongs to exactly one OS thread for its whole life). This is the usual
// way a Branch child gets a ThreadState at all — Branch itself has no
// opinion on threading, With is the bridge between structured concurrency
// and the threadstate package.
func (b *Branch) With(rt *threadstate.Runtime, fn func(ts *threadstate.ThreadState) error) {
	b.Add(func() error {
		return runPinned(rt, b.logger, fn)
	})
}

// With is Collate's equivalent of Branch.With.
func (c *Collate) With(rt *threadstate.Runtime, fn func(ts *threadstate.ThreadState) (any, error)) {
	c.AddResult(func() (any, error) {
		var result any
		err := runPinned(rt, c.logger, func(ts *threadstate.ThreadState) error {
			var fnErr error
			result, fnErr = fn(ts)
			return fnErr
		})
		return result, err
	})
}

func runPinned(rt *threadstate.Runtime, logger corelog.Logger, fn func(ts *threadstate.ThreadState) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ts := rt.Enter()
	defer ts.Exit(0)

	corelog.Emit(logger, corelog.Entry{
		Level: corelog.LevelDebug, Component: "branch",
		Message: "child pinned to OS thread",
		Fields:  map[string]any{"thread": ts.ID(), "tid": unix.Gettid()},
	})

	return fn(ts)
}
