package platform

import "sync/atomic"

// fenceWord is the target of the dummy read-modify-write used as a full
// fence. It lives on its own cache line so fencing threads do not false-share
// with anything else.
type fenceWord struct { // betteralign:ignore
	_ [CacheLineSize]byte
	v atomic.Uint64
	_ [CacheLineSize - 8]byte
}

var fence fenceWord

// asymmetricBarrier reports whether BroadcastBarrier is backed by a real
// process-wide primitive (membarrier on Linux). It is written once during
// package initialization, before any other goroutine can observe it.
var asymmetricBarrier bool

// StrongFence is a full memory fence: no load or store on the calling
// thread may be reordered across it, in either direction. Go has no fence
// instruction, so this is an uncontended atomic read-modify-write, which
// the architecture-level implementations of sync/atomic guarantee to be
// sequentially consistent.
func StrongFence() {
	fence.v.Add(0)
}

// ReaderFence is the reader's half of an asymmetric fence pairing. When the
// process-wide broadcast barrier is available the reader side can rely on
// the writer's BroadcastBarrier to force the ordering, and this reduces to a
// compiler-level ordering point (the surrounding atomic operations already
// pin instruction order). Without the broadcast primitive both sides must
// fence, so this falls back to StrongFence.
//
// Correctness requires the pairing, not the mechanism: every ReaderFence
// site must have a matching BroadcastBarrier on the writer path.
func ReaderFence() {
	if !asymmetricBarrier {
		StrongFence()
	}
}

// BroadcastBarrier forces a full memory fence on every CPU in the process.
// Writers call it to pair with ReaderFence on the read side. When the
// platform primitive is unavailable it degrades to a local StrongFence,
// which is sufficient because ReaderFence then fences locally too.
func BroadcastBarrier() {
	if !asymmetricBarrier || !broadcastBarrier() {
		StrongFence()
	}
}
