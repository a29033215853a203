// Package freethread ties every go-freethread primitive to a single
// runtimecfg.Config, the way eventloop.Loop ties its poller, timer heap,
// and microtask queue to one set of options (eventloop/loop.go,
// eventloop/options.go): a process has exactly one set of tunables
// (spec.md §9), so Runtime is the one place that reads them and hands
// each component its share.
//
// Without Runtime, runtimecfg.Config would be a struct nothing
// constructs from: refcount.NewAsyncTable, monitor.MonitorSpace,
// weakref.DeathQueue, and shareddict.Dict would each need their own
// compiled-in defaults, exactly what spec.md §9(c) says not to do.
package freethread

import (
	"github.com/joeycumines/go-freethread/corelog"
	"github.com/joeycumines/go-freethread/monitor"
	"github.com/joeycumines/go-freethread/refcount"
	"github.com/joeycumines/go-freethread/runtimecfg"
	"github.com/joeycumines/go-freethread/shareddict"
	"github.com/joeycumines/go-freethread/threadstate"
	"github.com/joeycumines/go-freethread/weakref"
)

// Runtime is the process-wide handle a program holds: one ThreadState
// registry, one top-level MonitorSpace, and one DeathQueue, all sized and
// tuned from the same Config.
type Runtime struct {
	Config   runtimecfg.Config
	Logger   corelog.Logger
	Threads  *threadstate.Runtime
	Monitors *monitor.MonitorSpace
	Deaths   *weakref.DeathQueue
}

// Option customizes New beyond what Config captures — currently just the
// logger, since every other tunable belongs in Config (spec.md §9(c)).
type Option func(*options)

type options struct {
	logger corelog.Logger
}

// WithLogger attaches l to every component New constructs. The default is
// corelog.Nop(), matching eventloop's "logging is opt-in" convention.
func WithLogger(l corelog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func resolveOptions(opts []Option) *options {
	o := &options{logger: corelog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// New wires cfg's tunables into a fresh Runtime: threadstate's size-class
// cache dimensions, the MonitorSpace deadlock delay, and a DeathQueue
// sharing the same logger — replacing each component's compiled-in
// default with cfg's value.
func New(cfg runtimecfg.Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := resolveOptions(opts)

	threads := threadstate.NewRuntime(
		threadstate.WithLogger(o.logger),
		threadstate.WithSizeClasses(cfg.SizeClassCount, cfg.SizeClassCacheDepth),
		threadstate.WithAsyncTableSize(cfg.AsyncRefcountTableSize),
	)

	monitors := monitor.NewSpace()
	monitors.SetDeadlockDelay(cfg.MonitorDeadlockDelay)

	return &Runtime{
		Config:   cfg,
		Logger:   o.logger,
		Threads:  threads,
		Monitors: monitors,
		Deaths:   weakref.NewDeathQueue(o.logger),
	}, nil
}

// NewAsyncTable constructs a standalone refcount.AsyncTable sized per
// rt.Config, for the rare caller that needs one decoupled from any single
// ThreadState. Every ThreadState created via rt.Threads.Enter already
// carries its own attached table (spec.md §4.2/§4.4) reachable through
// (*threadstate.ThreadState).Async. Handle.DecrefAsync does not go through
// any AsyncTable; a table only holds the deltas its own Queue calls record.
func (rt *Runtime) NewAsyncTable() *refcount.AsyncTable {
	return refcount.NewAsyncTable(rt.Config.AsyncRefcountTableSize)
}

// NewSharedDict constructs a shareddict.Dict promoted to read-only after
// rt.Config.SharedDictReadOnlyThreshold consecutive reads, wired to
// demote itself (via rt.Threads.StopTheWorld) rather than permanently
// reject writes once promoted. It is a free function, not a Runtime
// method, because Go forbids type parameters on methods.
func NewSharedDict[K comparable, V any](rt *Runtime) *shareddict.Dict[K, V] {
	return shareddict.New[K, V](rt.Config.SharedDictReadOnlyThreshold, shareddict.WithStopTheWorld[K, V](rt.Threads))
}
