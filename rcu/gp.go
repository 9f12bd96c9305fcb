package rcu

import (
	"runtime"
	"sync/atomic"

	"github.com/joeycumines/go-urcu/internal/platform"
)

// readerState classifies a reader against the current grace-period counter.
type readerState int

const (
	// readerInactive: offline; nothing to wait for.
	readerInactive readerState = iota
	// readerActiveCurrent: online and has passed a quiescent state since
	// the last parity flip.
	readerActiveCurrent
	// readerActiveOld: online with a stale counter snapshot; the grace
	// period must wait for it.
	readerActiveOld
)

func (x *Domain) readerState(r *Reader) readerState {
	v := r.ctr.Load()
	if v == 0 {
		return readerInactive
	}
	if v == x.gpCtr.Load() {
		return readerActiveCurrent
	}
	return readerActiveOld
}

// Synchronize blocks until every read-side critical section that began
// before the call has ended. It must not be called while the calling
// goroutine's own reader is online; use Reader.Synchronize for that, which
// steps offline around the wait.
//
// Concurrent callers batch: the caller that finds the waiter queue empty
// leads the grace period for everyone queued behind it and wakes them when
// it completes, so N concurrent calls cost one grace period, not N.
func (x *Domain) Synchronize() {
	// Order this goroutine's prior stores (typically the unpublish the
	// caller is about to reclaim behind) before everything below.
	platform.StrongFence()

	var w waiter
	if !x.waiters.add(&w) {
		// Queue was non-empty: the current leader's grace period covers us.
		w.park()
		platform.StrongFence()
		return
	}

	// Leader. We will not need to wake ourself.
	atomic.StoreInt32(&w.state, waiterRunning)

	if h := x.testHooks; h != nil && h.OnLeader != nil {
		h.OnLeader()
	}

	x.gpMu.Lock()

	// Take the whole batch; callers from here on form the next one.
	batch := x.waiters.takeAll()

	x.registryMu.Lock()

	x.log.Trace().Uint64(`gp`, x.gpCtr.Load()).Log(`rcu: grace period start`)

	if !x.registry.empty() {
		var curSnap, qs readerList

		// Order prior writes before reading reader counters. QSBR readers
		// issue full fences in their state transitions, pairing with this.
		platform.BroadcastBarrier()

		// Round one: wait out readers with old snapshots; park readers
		// that are current (they will be old after the flip) on curSnap.
		x.waitForReaders(&x.registry, &curSnap, &qs)

		// Finish waiting for the original parity before the flip commits.
		platform.StrongFence()
		x.gpCtr.Store(x.gpCtr.Load() ^ gpCtrPhase)
		if h := x.testHooks; h != nil && h.OnParityFlip != nil {
			h.OnParityFlip()
		}
		// Commit the flip before waiting on the new parity.
		platform.StrongFence()

		// Round two: only the readers snapshotted as current in round one.
		x.waitForReaders(&curSnap, nil, &qs)

		qs.spliceInto(&x.registry)

		platform.BroadcastBarrier()
	}

	x.log.Trace().Uint64(`gp`, x.gpCtr.Load()).Log(`rcu: grace period end`)

	x.registryMu.Unlock()
	x.gpMu.Unlock()

	wakeAll(batch)
}

// Synchronize steps the reader offline around a grace period on its domain,
// so the caller does not wait on itself, and restores the previous state
// afterwards.
func (x *Reader) Synchronize() {
	d := x.mustDomain()
	wasOnline := x.ctr.Load() != 0
	if wasOnline {
		x.Offline()
	}
	d.Synchronize()
	if wasOnline {
		x.Online()
	}
}

// waitForReaders repeatedly classifies the readers on input until none is
// old: inactive readers migrate onto qs, current readers onto curSnap when
// it is non-nil and onto qs otherwise, and old readers keep input non-empty. Called with registryMu held; the lock is
// released around each relax/sleep so registration can make progress. After
// qsActiveAttempts passes the futex is armed and the loop sleeps instead of
// spinning; readers wake it from their quiescent-state transitions.
func (x *Domain) waitForReaders(input, curSnap, qs *readerList) {
	waitLoops := 0
	for {
		armed := false
		if waitLoops < qsActiveAttempts {
			waitLoops++
		} else {
			atomic.StoreInt32(&x.futex, -1)
			// Arm the futex before re-reading reader counters: a reader
			// that transitions after this sees the armed futex and wakes
			// us.
			platform.StrongFence()
			armed = true
		}

		input.lazyInit()
		for n := input.head.next; n != &input.head; {
			next := n.next
			r := n.reader
			switch x.readerState(r) {
			case readerActiveCurrent:
				if curSnap != nil {
					input.move(r, curSnap)
					break
				}
				input.move(r, qs)
			case readerInactive:
				input.move(r, qs)
			case readerActiveOld:
				// Not yet quiescent; stays on input.
			}
			n = next
		}

		if input.empty() {
			if armed {
				atomic.StoreInt32(&x.futex, 0)
			}
			return
		}

		// Let registrations progress while we wait.
		x.registryMu.Unlock()
		if armed {
			x.log.Trace().Log(`rcu: grace period parked on futex`)
			x.waitGP()
		} else {
			runtime.Gosched()
		}
		x.registryMu.Lock()
	}
}

// waitGP sleeps on the domain futex until a reader disarms it.
func (x *Domain) waitGP() {
	// Order the preceding counter reads before the futex read.
	platform.StrongFence()
	for atomic.LoadInt32(&x.futex) == -1 {
		platform.FutexWait(&x.futex, -1)
	}
}
