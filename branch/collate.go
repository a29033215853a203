package branch

import (
	"sync"

	"github.com/joeycumines/go-freethread/corelog"
	"github.com/joeycumines/go-freethread/corerr"
)

// Collate spawns children and collects every outcome, regardless of
// failure (spec.md §4.9's AllSettled-style semantics, as opposed to
// Branch's fail-fast semantics).
type Collate struct {
	life *lifecycle
	wg   sync.WaitGroup

	mu      sync.Mutex
	results []any
	errs    []error

	logger corelog.Logger
}

// NewCollate constructs an ALIVE Collate ready to accept children.
func NewCollate() *Collate {
	return &Collate{life: newLifecycle(), logger: corelog.Nop()}
}

// WithLogger attaches a structured logger used for child diagnostics.
func (c *Collate) WithLogger(l corelog.Logger) *Collate {
	c.logger = l
	return c
}

// Add spawns fn as a child contributing no result value, only
// participating in the aggregate error set GetResults returns.
func (c *Collate) Add(fn func() error) {
	c.AddResult(func() (any, error) {
		return nil, fn()
	})
}

// AddResult spawns fn as a child whose return value is collected
// alongside every other child's, in the order children were added (not
// the order they complete in — spec.md §4.9: Collate preserves child
// identity).
func (c *Collate) AddResult(fn func() (any, error)) {
	c.life.requireAlive()

	c.mu.Lock()
	idx := len(c.results)
	c.results = append(c.results, nil)
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		v, err := fn()

		c.mu.Lock()
		defer c.mu.Unlock()
		c.results[idx] = v
		if err != nil {
			c.errs = append(c.errs, err)
			corelog.Emit(c.logger, corelog.Entry{
				Level: corelog.LevelWarn, Component: "branch",
				Message: "collate child failed", Err: err,
			})
		}
	}()
}

// GetResults transitions the collate to DYING, blocks until every child
// has finished, transitions to DEAD, and returns every child's result
// value alongside a corerr.MultipleError aggregating every child error
// (nil if none failed).
func (c *Collate) GetResults() ([]any, error) {
	c.life.beginDraining()
	c.wg.Wait()
	c.life.finishDraining()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) == 0 {
		return c.results, nil
	}
	return c.results, &corerr.MultipleError{Errors: append([]error(nil), c.errs...)}
}

// State reports the collate's current lifecycle state.
func (c *Collate) State() string { return c.life.state().String() }
