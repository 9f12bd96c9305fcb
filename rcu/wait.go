package rcu

import (
	"runtime"
	"sync/atomic"

	"github.com/joeycumines/go-urcu/internal/platform"
)

// Waiter states. WAITING is the initial state; a waker transitions the
// waiter to WAKEUP; the waiter ORs in RUNNING once it has stopped (or never
// started) sleeping, which tells the waker the futex wake can be skipped.
const (
	waiterWaiting int32 = 0
	waiterWakeup  int32 = 1 << 0
	waiterRunning int32 = 1 << 1
)

// waitAttempts is how long a parked waiter spins before futex-waiting.
const waitAttempts = 100

// waiter is one parked Synchronize caller. The state word doubles as the
// futex word.
type waiter struct {
	state int32
	next  *waiter
}

// park blocks until a waker has transitioned the waiter out of WAITING,
// spinning briefly before sleeping on the state word.
func (x *waiter) park() {
	for i := 0; i < waitAttempts; i++ {
		if atomic.LoadInt32(&x.state) != waiterWaiting {
			goto running
		}
		runtime.Gosched()
	}
	for atomic.LoadInt32(&x.state) == waiterWaiting {
		platform.FutexWait(&x.state, waiterWaiting)
	}
running:
	// Tell the waker we are running, so it can skip the futex wake.
	atomic.OrInt32(&x.state, waiterRunning)
}

// wake releases a parked waiter. Skips the futex syscall when the waiter
// already reported itself running.
func (x *waiter) wake() {
	platform.StrongFence()
	atomic.StoreInt32(&x.state, waiterWakeup)
	if atomic.LoadInt32(&x.state)&waiterRunning == 0 {
		platform.FutexWake(&x.state, 1)
	}
}

// waitQueue batches grace periods: a lock-free LIFO stack of waiters. The
// caller that pushes onto an empty queue is the batch leader; everyone else
// parks and is woken by the leader after the shared grace period.
type waitQueue struct {
	head atomic.Pointer[waiter]
}

// add pushes w and reports whether the queue was empty beforehand.
func (x *waitQueue) add(w *waiter) (wasEmpty bool) {
	for {
		old := x.head.Load()
		w.next = old
		if x.head.CompareAndSwap(old, w) {
			return old == nil
		}
	}
}

// takeAll detaches and returns the current stack. Callers pushed after this
// point form the next batch.
func (x *waitQueue) takeAll() *waiter {
	return x.head.Swap(nil)
}

// wakeAll wakes every waiter in the detached stack, skipping already-running
// ones (in particular the leader's own node).
func wakeAll(head *waiter) {
	for w := head; w != nil; {
		next := w.next
		if atomic.LoadInt32(&w.state)&waiterRunning == 0 {
			w.wake()
		}
		w = next
	}
}
