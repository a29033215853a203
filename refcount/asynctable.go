package refcount

import (
	"sync"
	"time"
	"unsafe"

	"github.com/joeycumines/go-catrate"
)

// AsyncTable is the per-ThreadState buffer of pending cross-thread
// refcount deltas spec.md §4.4 calls out: rather than every DecrefAsync
// touching a contended object's shared atomic counter immediately, the
// delta is accumulated in a fixed-size, power-of-two-masked table local to
// the acting thread and flushed in batches. This amortizes the cost of
// hammering one popular object's shared counter from many threads at
// once, matching catrate/ring.go's power-of-two-masked slot indexing
// (`size&(size-1) != 0` panics, the same guard used here).
//
// A catrate.Limiter counts how often each slot is queued to (up to the
// table size per 10ms window); once a slot goes over that limit, Queue
// flushes it immediately instead of deferring its delta any further.
type AsyncTable struct {
	mu      sync.Mutex
	slots   []asyncSlot
	mask    uint64
	limiter *catrate.Limiter
}

type asyncSlot struct {
	handle *Handle
	delta  int64
}

// NewAsyncTable constructs an AsyncTable with the given power-of-two slot
// count (runtimecfg.Config.AsyncRefcountTableSize).
func NewAsyncTable(size int) *AsyncTable {
	if size <= 0 || size&(size-1) != 0 {
		panic("refcount: AsyncTable size must be a power of 2")
	}
	return &AsyncTable{
		slots:   make([]asyncSlot, size),
		mask:    uint64(size - 1),
		limiter: catrate.NewLimiter(map[time.Duration]int{time.Millisecond * 10: size}),
	}
}

func (a *AsyncTable) index(h *Handle) uint64 {
	return uint64(uintptr(unsafe.Pointer(h))) & a.mask
}

// Queue records a pending delta for h, owned by t, in this table. If the
// slot h hashes to is already occupied by a different handle, that
// handle's pending delta is flushed first, then h takes the slot. If the
// table's catrate.Limiter rejects the slot (it has been queued to too
// often in the current window), the slot is flushed right away.
func (a *AsyncTable) Queue(h *Handle, t Thread, delta int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.index(h)
	slot := &a.slots[idx]

	if slot.handle != nil && slot.handle != h {
		a.flushSlotLocked(slot, t)
	}
	slot.handle = h
	slot.delta += delta

	if _, ok := a.limiter.Allow(idx); !ok {
		// the slot is hot enough that the limiter is rejecting further
		// deferral; flush immediately instead of growing unboundedly.
		a.flushSlotLocked(slot, t)
	}
}

// flushSlotLocked applies slot's accumulated delta to its handle's shared
// counter and clears the slot. Caller must hold a.mu.
func (a *AsyncTable) flushSlotLocked(slot *asyncSlot, t Thread) {
	h, delta := slot.handle, slot.delta
	slot.handle, slot.delta = nil, 0
	if h == nil || delta == 0 {
		return
	}
	if delta > 0 {
		for ; delta > 0; delta-- {
			h.Incref(t)
		}
		return
	}
	for ; delta < 0; delta++ {
		h.DecrefAsync(t)
	}
	// flushSlotLocked is itself the maintenance point DecrefAsync's
	// deferred finalize is waiting for (spec.md §4.3).
	h.FlushFinalize(t)
}

// Flush forces every occupied slot in the table to apply its pending
// delta immediately, used when a ThreadState detaches (spec.md §4.2) so
// no deferred refcount work is lost.
func (a *AsyncTable) Flush(t Thread) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.slots {
		a.flushSlotLocked(&a.slots[i], t)
	}
}
