package hpref

import (
	"sync/atomic"

	"github.com/joeycumines/go-urcu/internal/platform"
)

const (
	// slotsPerBank is the number of hazard slots per CPU. Eight 8-byte slots
	// fill exactly one 64-byte cache line.
	slotsPerBank = 8

	// emergencySlot is the reserved last slot of each bank. It is only ever
	// used as a transient staging area: a reader that claims it promotes to
	// a reference count immediately, so no reader parks in it for longer
	// than one promote.
	emergencySlot = slotsPerBank - 1

	// periodMask selects the period tag bit of a slot value. The remaining
	// bits are the node address; node alignment guarantees the bit is free.
	periodMask = uintptr(1)
)

// slot is a single hazard-pointer cell. Zero means empty; otherwise it holds
// a node address with the period tag in the low bit. Only the owning CPU's
// current goroutine may transition it from zero to non-zero (via the pinned
// compare-and-store); any goroutine may clear it or observe it.
type slot struct {
	v atomic.Uintptr
}

// bank is the per-CPU slot array. One bank is exactly one cache line, so
// banks never false-share with their neighbors.
type bank struct {
	slots [slotsPerBank]slot
}

// banks is the process-wide hazard slot slab, indexed by CPU id. It is
// published once at package initialization and never resized; a CPU id past
// the table (GOMAXPROCS raised later) wraps, which only increases contention
// on the shared bank, never affects correctness.
var banks []bank

// period is the global scan period. Readers tag their slot stores with its
// low bit; the tag is what lets SynchronizeAll make progress against a
// steady stream of re-acquisitions of the same pointer.
var period atomic.Uintptr

func init() {
	banks = make([]bank, platform.MaxCPUs())
}

func bankFor(cpu int) *bank {
	return &banks[cpu%len(banks)]
}

// untag strips the period tag, leaving the node address.
func untag(v uintptr) uintptr {
	return v &^ periodMask
}
