package threadstate

import (
	"sync"
	"sync/atomic"
)

// TickMetrics tracks the safepoint counters spec.md §5.2 calls out:
// large_ticks increments on every Tick call that actually checks for a
// pending StopTheWorld/suspend request, small_ticks increments on every
// Tick call that takes the cheap fast path (no pending request observed).
// The split lets a profiler see how often the expensive path triggers
// without instrumenting every call site individually, the same role
// eventloop.Metrics plays for task latency: a single snapshot struct,
// atomics for the hot increments, a mutex only for the rare Snapshot read.
type TickMetrics struct {
	largeTicks atomic.Uint64
	smallTicks atomic.Uint64

	mu           sync.Mutex
	lastSnapshot TickSnapshot
}

// TickSnapshot is a point-in-time copy of TickMetrics, safe to read after
// the metrics object has moved on.
type TickSnapshot struct {
	LargeTicks uint64
	SmallTicks uint64
}

func (m *TickMetrics) recordLarge() { m.largeTicks.Add(1) }
func (m *TickMetrics) recordSmall() { m.smallTicks.Add(1) }

// Snapshot returns the current counter values.
func (m *TickMetrics) Snapshot() TickSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSnapshot = TickSnapshot{
		LargeTicks: m.largeTicks.Load(),
		SmallTicks: m.smallTicks.Load(),
	}
	return m.lastSnapshot
}

// SizeClassCache is the per-ThreadState free-object cache described in
// spec.md §5.3: one bounded slice-backed stack per size class, so a thread
// that frees and immediately reallocates an object of the same size never
// touches the shared allocator. Grounded on eventloop's per-Loop resource
// pooling idiom (batchBuf-style reuse buffers), generalized from a single
// fixed-size buffer to N independently-sized classes.
type SizeClassCache struct {
	classes []sizeClassSlot
}

type sizeClassSlot struct {
	size  int
	depth int
	free  [][]byte
}

// NewSizeClassCache builds a cache with classCount size classes, each
// holding up to cacheDepth freed buffers before Put starts discarding.
// Size classes double starting at 16 bytes (16, 32, 64, ...), matching the
// coarse power-of-two classing most allocators use.
func NewSizeClassCache(classCount, cacheDepth int) *SizeClassCache {
	c := &SizeClassCache{classes: make([]sizeClassSlot, classCount)}
	size := 16
	for i := range c.classes {
		c.classes[i] = sizeClassSlot{size: size, depth: cacheDepth}
		size *= 2
	}
	return c
}

// classFor returns the index of the smallest size class that fits n bytes,
// or -1 if n exceeds every configured class.
func (c *SizeClassCache) classFor(n int) int {
	for i := range c.classes {
		if c.classes[i].size >= n {
			return i
		}
	}
	return -1
}

// Get returns a buffer of at least n bytes, reusing a freed one if the
// matching size class has one cached.
func (c *SizeClassCache) Get(n int) []byte {
	if idx := c.classFor(n); idx >= 0 {
		slot := &c.classes[idx]
		if l := len(slot.free); l > 0 {
			buf := slot.free[l-1]
			slot.free = slot.free[:l-1]
			return buf[:n]
		}
		return make([]byte, n, slot.size)
	}
	return make([]byte, n)
}

// Put returns buf to its size class cache, dropping it if the class's
// cache is already at depth (spec.md §5.3: bounded per-thread caches, no
// unbounded growth). A buffer whose capacity is not exactly a class size
// is dropped too, since Get reslices a cached buffer up to its class size.
func (c *SizeClassCache) Put(buf []byte) {
	idx := c.classFor(cap(buf))
	if idx < 0 {
		return
	}
	slot := &c.classes[idx]
	if cap(buf) != slot.size || len(slot.free) >= slot.depth {
		return
	}
	slot.free = append(slot.free, buf[:0])
}
