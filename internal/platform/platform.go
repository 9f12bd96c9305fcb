// Package platform provides the low-level primitives the read-side and
// grace-period machinery is built on: a current-CPU identifier, a
// migration-detecting per-CPU compare-and-store, memory fences (including a
// process-wide asymmetric "broadcast" barrier), and futex wait/wake.
//
// Go exposes neither restartable sequences nor per-CPU storage, so the
// per-CPU contract is mapped onto the runtime's P (processor) model: a
// goroutine pinned to its P cannot migrate, which gives the compare-and-store
// the same abort-on-migration atomicity that rseq provides natively. The P id
// returned by CurrentCPU is what callers index their per-CPU state with.
package platform

import (
	"runtime"
	"sync/atomic"
	_ "unsafe" // for go:linkname
)

// CacheLineSize is the assumed CPU cache line size, used by callers to pad
// per-CPU state. 64 bytes is standard for x86-64; Apple Silicon and some
// ARM64 parts use 128, but 64 remains the unit slot banks are sized against
// (a bank of eight 8-byte slots is exactly one 64-byte line).
const CacheLineSize = 64

// procPin pins the calling goroutine to its P, disabling preemption, and
// returns the P id; procUnpin releases it. These are the primitives
// sync.Pool builds its per-P slots on.
//
//go:linkname procPin sync.runtime_procPin
func procPin() int

//go:linkname procUnpin sync.runtime_procUnpin
func procUnpin()

// MaxCPUs returns the number of distinct identifiers CurrentCPU may return
// at the time of the call. Callers size per-CPU state with this once, at
// initialization; identifiers observed later are reduced modulo that size.
func MaxCPUs() int {
	return runtime.GOMAXPROCS(0)
}

// CurrentCPU returns the identifier of the P the calling goroutine is
// executing on. The value may be stale by the time the caller uses it; any
// use that requires it to still be current must go through
// SlotCompareAndStore, which re-validates under pinning.
func CurrentCPU() int {
	cpu := procPin()
	procUnpin()
	return cpu
}

// CASStatus is the outcome of SlotCompareAndStore.
type CASStatus int

const (
	// CASOK means the slot held old and now holds new.
	CASOK CASStatus = iota
	// CASBusy means the slot held a value other than old.
	CASBusy
	// CASMigrated means the caller is no longer running on cpu; the slot was
	// not touched. The caller must re-read its CPU and retry.
	CASMigrated
)

// SlotCompareAndStore performs a compare-and-store against a per-CPU slot,
// on behalf of a caller that believes it is running on cpu. The goroutine is
// pinned for the duration of the operation; if the pinned P does not match
// cpu the store is abandoned and CASMigrated is returned, mirroring the
// abort behavior of a restartable sequence.
func SlotCompareAndStore(slot *atomic.Uintptr, old, new uintptr, cpu int) CASStatus {
	pid := procPin()
	if pid != cpu {
		procUnpin()
		return CASMigrated
	}
	ok := slot.CompareAndSwap(old, new)
	procUnpin()
	if !ok {
		return CASBusy
	}
	return CASOK
}
