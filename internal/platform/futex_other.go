//go:build !linux

package platform

import (
	"sync"
	"sync/atomic"
)

// The fallback futex keys waiters by word address. A wake closes the
// generation channel, releasing every waiter parked on that word; the
// real futex only commits to waking n threads, but waking more is permitted
// because FutexWait is allowed to return spuriously.
var futexTable struct {
	mu    sync.Mutex
	chans map[*int32]chan struct{}
}

func init() {
	futexTable.chans = make(map[*int32]chan struct{})
}

// FutexWait blocks until the word at addr no longer holds expected, or until
// a wake or a spurious return. Callers must loop on their condition.
func FutexWait(addr *int32, expected int32) {
	futexTable.mu.Lock()
	if atomic.LoadInt32(addr) != expected {
		futexTable.mu.Unlock()
		return
	}
	ch, ok := futexTable.chans[addr]
	if !ok {
		ch = make(chan struct{})
		futexTable.chans[addr] = ch
	}
	futexTable.mu.Unlock()
	<-ch
}

// FutexWake wakes waiters blocked in FutexWait on addr. The n parameter is
// advisory in the fallback: all current waiters are released.
func FutexWake(addr *int32, n int32) {
	_ = n
	futexTable.mu.Lock()
	if ch, ok := futexTable.chans[addr]; ok {
		delete(futexTable.chans, addr)
		close(ch)
	}
	futexTable.mu.Unlock()
}
