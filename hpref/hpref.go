package hpref

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/joeycumines/go-urcu/internal/platform"
)

// Ctx is a reader context: the handle returned by a successful Get, holding
// an existence-guaranteed reference to one node. It is stack-scoped between
// Get and Put and must not be shared between goroutines.
//
// The zero value is inert. A context holds its node either through a hazard
// slot (the fast path) or through a reference count (after Promote, or when
// the emergency slot had to be used).
type Ctx[T any] struct {
	slot *slot // non-nil while holding via hazard slot
	node *Node[T]
}

// Pointer returns the node the context holds, or nil for an inert context.
func (x *Ctx[T]) Pointer() *Node[T] {
	return x.node
}

// SetPointer publishes node to dst. The atomic store orders every prior
// initialization of *node before the publication, so a reader that observes
// the new pointer observes the node fully constructed.
func SetPointer[T any](dst *atomic.Pointer[Node[T]], node *Node[T]) {
	dst.Store(node)
}

// Get dereferences the published pointer at src. It returns false with ctx
// inert when the publication is nil, or true with ctx holding an
// existence-guaranteed reference to the published node.
//
// The protocol: load the publication, advertise the loaded pointer in a
// hazard slot of the current CPU's bank, then re-load the publication. The
// re-load is what closes the race with a concurrent retire: the slot store
// and the first load are not atomic together, so the object may have been
// unpublished (and a Synchronize scan passed the still-empty slot) in
// between. Pointer identity is the comparison; both values come from the
// same location, so no compile-time-known value can bias it.
//
// A reader that found every regular slot occupied claims the reserved
// emergency slot (busy-waiting if a previous emergency user has not yet
// vacated it) and immediately promotes to a reference count, freeing the
// slot for the next overflow. Get is bounded: at most one emergency-slot
// wait and one publication re-load per change of the published value.
func Get[T any](src *atomic.Pointer[Node[T]], ctx *Ctx[T]) bool {
	node := src.Load()
	for {
		if node == nil {
			return false
		}
		s, emergency := acquireSlot(node)

		// Order the slot store before the publication re-load. The writer
		// side's BroadcastBarrier in Synchronize supplies the other half of
		// the pairing.
		platform.ReaderFence()

		node2 := src.Load()
		if node2 != node {
			s.v.Store(0)
			if node2 == nil {
				return false
			}
			node = node2
			continue
		}

		ctx.slot, ctx.node = s, node
		if emergency {
			ctx.Promote()
		}
		return true
	}
}

// acquireSlot stores node, tagged with the current period, into a free slot
// of the calling CPU's bank. It returns the claimed slot and whether it was
// the emergency slot. Migration between CPUs is detected by the pinned
// compare-and-store and simply retried against the new bank.
func acquireSlot[T any](node *Node[T]) (*slot, bool) {
	cpu := platform.CurrentCPU()
acquire:
	for {
		b := bankFor(cpu)
		tagged := uintptr(unsafe.Pointer(node)) | (period.Load() & periodMask)

		for i := 0; i < emergencySlot; i++ {
			switch platform.SlotCompareAndStore(&b.slots[i].v, 0, tagged, cpu) {
			case platform.CASOK:
				return &b.slots[i], false
			case platform.CASMigrated:
				// Refresh the CPU and retry the same slot index on the new
				// bank. The period tag is re-read too; a flip may have
				// happened while we were migrating.
				cpu = platform.CurrentCPU()
				b = bankFor(cpu)
				tagged = uintptr(unsafe.Pointer(node)) | (period.Load() & periodMask)
				i--
			case platform.CASBusy:
				// Slot in use; advance.
			}
		}

		// Every regular slot was busy: claim the emergency slot. The only
		// possible occupant is another overflowing reader mid-promote, so
		// the wait is bounded by one promote.
		for {
			switch platform.SlotCompareAndStore(&b.slots[emergencySlot].v, 0, tagged, cpu) {
			case platform.CASOK:
				return &b.slots[emergencySlot], true
			case platform.CASMigrated:
				// A migration means a different bank, whose regular slots
				// may be free; rescan from the top.
				cpu = platform.CurrentCPU()
				continue acquire
			case platform.CASBusy:
				runtime.Gosched()
			}
		}
	}
}

// Promote converts a hazard-slot hold into a reference-count hold, freeing
// the slot. It is a no-op if the context already holds a reference count.
//
// The order is acquire-then-release: the counter increment must be visible
// before the slot clear is, so a Synchronize scan that passes the cleared
// slot is guaranteed to observe the non-zero count.
func (x *Ctx[T]) Promote() {
	if x.slot == nil {
		return
	}
	x.node.refs.acquire()
	x.slot.v.Store(0)
	x.slot = nil
}

// Put ends the critical section. A hazard-slot hold clears the slot; a
// reference-count hold drops the count, running the node's release callback
// if this was the last reference. Put on an inert context is a no-op, and
// the context is inert afterwards.
func (x *Ctx[T]) Put() {
	if x.node == nil {
		return
	}
	node := x.node
	x.node = nil
	if x.slot != nil {
		x.slot.v.Store(0)
		x.slot = nil
		return
	}
	node.Put()
}
