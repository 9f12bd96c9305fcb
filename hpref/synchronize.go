package hpref

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/joeycumines/go-urcu/internal/platform"
)

// syncMu serializes whole-table synchronizes. Without it, two concurrent
// period flips could leave a slot unobserved across both scans.
var syncMu sync.Mutex

// Synchronize waits until no reader holds a hazard pointer to node that was
// obtained before the caller's last unpublish of it. A nil node waits for
// every in-flight hazard pointer instead, equivalent to SynchronizeAll.
//
// Hazard pointers only; references taken via Promote are not waited on.
// Those are tracked by the node's reference count and resolved by Put.
func Synchronize[T any](node *Node[T]) {
	if node == nil {
		SynchronizeAll()
		return
	}

	// Order the caller's prior unpublish before the slot scans, pairing
	// with the ReaderFence between a reader's slot store and its
	// publication re-load: either the reader's re-load sees the unpublish
	// and the slot is abandoned, or our scan sees the slot.
	platform.BroadcastBarrier()

	addr := uintptr(unsafe.Pointer(node))
	for i := range banks {
		b := &banks[i]
		for j := range b.slots {
			for untag(b.slots[j].v.Load()) == addr {
				runtime.Gosched()
			}
		}
	}
}

// SynchronizePut is Synchronize(node) followed by dropping the caller's
// reference: the usual retire sequence after unpublishing a node.
func SynchronizePut[T any](node *Node[T]) {
	Synchronize(node)
	node.Put()
}

// SynchronizeAll waits for every hazard pointer that was held when the call
// began. Forward progress against readers that keep re-acquiring the same
// pointer into the same slot is provided by period tagging: the scan only
// waits on slots tagged with the periods current at entry, and readers that
// arrive after the flip tag with the new period, so they are never waited
// on.
//
// The two scans bracket the flip so that every slot set before entry,
// whichever of the two tags it carries, is drained by one of them: the
// first scan drains stragglers tagged with the opposite period, the second
// drains slots tagged with the period that was current at entry.
func SynchronizeAll() {
	syncMu.Lock()
	defer syncMu.Unlock()

	logger().Trace().Log(`hpref: synchronize all start`)

	// Order the caller's prior stores before the scans.
	platform.BroadcastBarrier()

	p := period.Load() & periodMask

	waitPeriod(p ^ 1)
	period.Store(p ^ 1)
	waitPeriod(p)

	logger().Trace().Log(`hpref: synchronize all end`)
}

// waitPeriod waits until no slot holds a value tagged with p. A slot is
// passed once it is observed empty or tagged with the other period; a
// changed value with the same tag is a new acquisition and is waited on
// again only within this scan's semantics (it must itself drain or retag).
func waitPeriod(p uintptr) {
	for i := range banks {
		b := &banks[i]
		for j := range b.slots {
			s := &b.slots[j]
			for {
				v := s.v.Load()
				if v == 0 || v&periodMask != p {
					break
				}
				runtime.Gosched()
			}
		}
	}
}
