package threadstate

import "github.com/joeycumines/go-freethread/corelog"

// runtimeOptions holds configuration resolved by RuntimeOption values,
// grounded on eventloop/options.go's loopOptions + LoopOption shape: an
// unexported options struct, a public functional-option interface, and a
// resolve function applying defaults before each option runs.
type runtimeOptions struct {
	logger              corelog.Logger
	sizeClassCount      int
	sizeClassCacheDepth int
	asyncTableSize      int
}

// RuntimeOption configures a Runtime at construction (see NewRuntime).
type RuntimeOption interface {
	applyRuntime(*runtimeOptions)
}

type runtimeOptionFunc func(*runtimeOptions)

func (f runtimeOptionFunc) applyRuntime(o *runtimeOptions) { f(o) }

// WithLogger attaches a structured logger to the Runtime and every
// ThreadState it creates (spec.md §2.3 ambient logging).
func WithLogger(l corelog.Logger) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) {
		o.logger = l
	})
}

// WithSizeClasses configures the per-size-class allocation cache described
// in spec.md §5.3: count distinct size classes, each caching up to depth
// free objects per ThreadState.
func WithSizeClasses(count, depth int) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) {
		o.sizeClassCount = count
		o.sizeClassCacheDepth = depth
	})
}

// WithAsyncTableSize configures the power-of-two slot count of the
// refcount.AsyncTable each ThreadState constructs for itself at Enter
// (spec.md §4.2's "per-thread async-refcount table of fixed
// power-of-two size (default 2048)").
func WithAsyncTableSize(size int) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) {
		o.asyncTableSize = size
	})
}

// resolveRuntimeOptions applies opts over sensible defaults, mirroring
// eventloop's resolveLoopOptions: defaults first, then each option in
// order, nil options skipped.
func resolveRuntimeOptions(opts []RuntimeOption) *runtimeOptions {
	cfg := &runtimeOptions{
		logger:              corelog.Nop(),
		sizeClassCount:      13,
		sizeClassCacheDepth: 32,
		asyncTableSize:      2048,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyRuntime(cfg)
	}
	return cfg
}
