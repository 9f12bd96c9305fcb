// Package rcu implements quiescent-state-based RCU (QSBR) with per-domain
// grace-period tracking.
//
// Readers register once per goroutine, then report quiescent states
// (points at which they hold no read-side references) by calling
// Reader.QuiescentState, or by going offline entirely around blocking
// regions. ReadLock and ReadUnlock are free in this flavor: the whole
// interval between Online and Offline counts as one long critical section,
// punctuated only by explicit quiescent states.
//
// Writers call Domain.Synchronize, which returns once every read-side
// critical section that began before the call has ended. Concurrent
// synchronize calls batch: one caller runs the grace period for the whole
// batch and wakes the rest.
//
// Two domains' grace periods are fully independent; the package-level
// functions operate on a lazily-created process-wide main domain.
package rcu
