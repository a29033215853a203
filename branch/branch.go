package branch

import (
	"errors"
	"sync"

	"github.com/joeycumines/go-freethread/corelog"
	"github.com/joeycumines/go-freethread/corerr"
	"github.com/joeycumines/go-freethread/interrupt"
)

// Branch spawns children and, once every child has finished, raises one
// "interesting" exception rather than the full set (spec.md §4.8): a
// single non-Interrupted child error wins outright; otherwise, when every
// child error is Interrupted and the branch's own base node fired,
// Interrupted wins; otherwise every child error is reported together as a
// corerr.MultipleError. Any failure discards every child's retained result.
//
// Each child gets its own interrupt.Node, chained under the previous
// child's node (interrupt.Node allows at most one child per parent, so
// fan-out to several live children is a chain, not a tree — see
// branch/doc.go). The first child failure signals the chain's root,
// cascading Signal down to every other child so cooperative checkpoints
// elsewhere in that child's call stack observe the cancellation.
type Branch struct {
	life *lifecycle
	wg   sync.WaitGroup

	mu      sync.Mutex
	results []any
	errs    []error

	base *interrupt.Node
	tail *interrupt.Node // last child pushed; the next child chains off this

	logger corelog.Logger
}

// New constructs an ALIVE Branch ready to accept children.
func New() *Branch {
	return &Branch{life: newLifecycle(), logger: corelog.Nop(), base: interrupt.New(nil)}
}

// WithLogger attaches a structured logger used for child spawn/failure
// diagnostics.
func (b *Branch) WithLogger(l corelog.Logger) *Branch {
	b.logger = l
	return b
}

// Interrupted reports whether the branch's own base node has fired, i.e.
// whether a child failure (or an external caller) has signalled the
// branch rather than a child raising Interrupted on its own account.
func (b *Branch) Interrupted() bool { return b.base.Signalled() }

// Add spawns fn as a new child goroutine. It panics if called after Wait
// has begun draining the branch (spec.md §7 "Add after DYING/DEAD" is a
// programming fault).
func (b *Branch) Add(fn func() error) {
	b.AddResult(func() (any, error) { return nil, fn() })
}

// AddResult spawns fn as a child whose return value is retained in
// submission order, provided every child ultimately succeeds — a single
// child failure discards every retained result (spec.md §4.8).
func (b *Branch) AddResult(fn func() (any, error)) {
	b.life.requireAlive()

	b.mu.Lock()
	idx := len(b.results)
	b.results = append(b.results, nil)
	parent := b.tail
	if parent == nil {
		parent = b.base
	}
	child := interrupt.New(nil)
	child.Push(parent)
	b.tail = child
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		v, err := fn()

		b.mu.Lock()
		defer b.mu.Unlock()
		b.results[idx] = v
		if err != nil {
			b.errs = append(b.errs, err)
			corelog.Emit(b.logger, corelog.Entry{
				Level: corelog.LevelWarn, Component: "branch",
				Message: "child failed", Err: err,
			})
			b.base.Signal()
		}
	}()
}

// Wait transitions the branch to DYING, blocks until every child has
// finished, transitions to DEAD, and returns the selected interesting
// error (or nil if every child succeeded).
func (b *Branch) Wait() error {
	_, err := b.GetResults()
	return err
}

// GetResults transitions the branch to DYING, blocks until every child
// has finished, transitions to DEAD, and returns every child's result in
// submission order — or, if any child failed, a nil result slice and the
// single interesting error spec.md §4.8 selects.
func (b *Branch) GetResults() ([]any, error) {
	b.life.beginDraining()
	b.wg.Wait()
	b.life.finishDraining()

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.errs) == 0 {
		return b.results, nil
	}
	return nil, b.selectError()
}

// selectError implements spec.md §4.8's exception-selection rule: prefer
// a single non-Interrupted child error; else Interrupted if every child
// error is Interrupted and the branch's own base node fired; else every
// child error together.
func (b *Branch) selectError() error {
	var notInterrupted []error
	for _, e := range b.errs {
		if !errors.Is(e, corerr.Interrupted) {
			notInterrupted = append(notInterrupted, e)
		}
	}
	switch {
	case len(notInterrupted) == 1:
		return notInterrupted[0]
	case len(notInterrupted) == 0 && b.Interrupted():
		return corerr.Interrupted
	default:
		return &corerr.MultipleError{Errors: append([]error(nil), b.errs...)}
	}
}

// State reports the branch's current lifecycle state, mostly useful for
// tests and diagnostics.
func (b *Branch) State() string { return b.life.state().String() }
