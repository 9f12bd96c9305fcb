package rcu

import (
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/go-urcu/internal/platform"
)

// Reader is a per-goroutine read-side record. A reader belongs to exactly
// one goroutine; only the registry links and the registered flag are shared
// state (guarded by the domain's registry lock), while the counter is
// written by the owner and read by grace periods.
type Reader struct {
	// Prevent comparison
	_ [0]func()

	// ctr is the reader's snapshot of the domain's grace-period counter.
	// Zero means offline; equal to the domain counter means the reader has
	// passed a quiescent state since the last parity flip; anything else
	// means the grace period must keep waiting on it.
	ctr atomic.Uint64

	// domain is the back-pointer set while registered.
	domain *Domain

	// node links the reader into the registry, or into one of the grace
	// period's classification lists. Guarded by registryMu; the links must
	// stay valid across the sporadic lock drops inside the wait loop, which
	// they do because only the lock holder ever touches them. Deleting a
	// node never dereferences a list head, so an unregister may unlink a
	// reader from whichever list the grace period currently has it on.
	node listNode

	// registered is true exactly while the reader is linked into a
	// domain's registry. Guarded by registryMu.
	registered bool

	// nesting counts ReadLock depth, for misuse detection only. Owner
	// goroutine only; no atomics needed.
	nesting int32
}

// NewReader creates an unregistered reader record.
func NewReader() *Reader {
	return &Reader{}
}

// Register links r into the domain's registry and brings it online. A
// registered reader participates in every subsequent grace period until it
// is unregistered.
func (x *Domain) Register(r *Reader) error {
	if x.closed.Load() {
		return ErrDomainClosed
	}
	x.registryMu.Lock()
	if r.registered {
		x.registryMu.Unlock()
		return ErrReaderRegistered
	}
	r.domain = x
	r.registered = true
	r.node.reader = r
	x.registry.push(r)
	x.registryMu.Unlock()
	r.Online()
	x.log.Debug().Log(`rcu: reader registered`)
	return nil
}

// Unregister takes r offline, reporting an implicit quiescent state if it
// was online, and unlinks it from the registry.
func (x *Domain) Unregister(r *Reader) error {
	if r.domain != x {
		return ErrReaderNotRegistered
	}
	if r.ctr.Load() != 0 {
		r.Offline()
	}
	x.registryMu.Lock()
	if !r.registered {
		x.registryMu.Unlock()
		return ErrReaderNotRegistered
	}
	x.registry.remove(r)
	r.registered = false
	r.domain = nil
	x.registryMu.Unlock()
	x.log.Debug().Log(`rcu: reader unregistered`)
	return nil
}

func (x *Reader) mustDomain() *Domain {
	d := x.domain
	if d == nil {
		panic(fmt.Errorf(`rcu: reader is not registered`))
	}
	return d
}

// Online marks the reader as participating, snapshotting the current
// grace-period counter. Accesses to protected data are permitted only
// between Online and Offline.
func (x *Reader) Online() {
	d := x.mustDomain()
	if x.ctr.Load() != 0 {
		panic(fmt.Errorf(`rcu: reader is already online`))
	}
	x.ctr.Store(d.gpCtr.Load())
	platform.StrongFence()
}

// Offline marks the reader as not participating: an extended quiescent
// state. It must not be called inside a read-side critical section.
func (x *Reader) Offline() {
	d := x.mustDomain()
	if x.nesting != 0 {
		panic(fmt.Errorf(`rcu: offline inside read-side critical section`))
	}
	platform.StrongFence()
	x.ctr.Store(0)
	platform.StrongFence()
	d.wakeUpGP()
}

// QuiescentState reports that the reader holds no read-side references at
// this instant. It is the reader's end of the grace-period contract: a
// writer's Synchronize cannot return until every online reader has passed
// through one.
func (x *Reader) QuiescentState() {
	d := x.mustDomain()
	if x.nesting != 0 {
		panic(fmt.Errorf(`rcu: quiescent state inside read-side critical section`))
	}
	gp := d.gpCtr.Load()
	if x.ctr.Load() == gp {
		return
	}
	platform.StrongFence()
	x.ctr.Store(gp)
	platform.StrongFence()
	d.wakeUpGP()
}

// ReadLock begins a read-side critical section. In the QSBR flavor this
// compiles down to a misuse assertion: the whole online interval already
// counts as a critical section, so there is nothing to publish. The nesting
// counter exists purely to catch unlocks without locks and quiescent states
// inside critical sections.
func (x *Reader) ReadLock() {
	x.mustDomain()
	if x.ctr.Load() == 0 {
		panic(fmt.Errorf(`rcu: read lock while offline`))
	}
	x.nesting++
}

// ReadUnlock ends a read-side critical section.
func (x *Reader) ReadUnlock() {
	if x.nesting <= 0 {
		panic(fmt.Errorf(`rcu: unbalanced read unlock`))
	}
	x.nesting--
}

// wakeUpGP wakes a grace period parked on the domain futex, if any. The
// reader's preceding fence orders its counter store before the futex read,
// pairing with the writer's fence between arming the futex and re-reading
// counters: at least one side observes the other.
func (x *Domain) wakeUpGP() {
	if atomic.LoadInt32(&x.futex) == -1 {
		if atomic.CompareAndSwapInt32(&x.futex, -1, 0) {
			platform.FutexWake(&x.futex, 1)
		}
	}
}

// --- registry list ---

// listNode is an intrusive circular-list link. Intrusive links keep reader
// identity stable while the grace period shuffles readers between its
// classification lists with the registry lock only sporadically held; no
// allocation, no boxing.
type listNode struct {
	next, prev *listNode

	// reader points back at the owning Reader; nil on sentinel heads.
	reader *Reader
}

// readerList is a circular doubly-linked list with an embedded sentinel.
// The circular shape is what makes delete position-independent: unlinking a
// node touches only its neighbors, never a head pointer, so a reader can be
// removed without knowing which list it is currently on.
type readerList struct {
	head listNode
}

func (x *readerList) lazyInit() {
	if x.head.next == nil {
		x.head.next = &x.head
		x.head.prev = &x.head
	}
}

func (x *readerList) empty() bool {
	x.lazyInit()
	return x.head.next == &x.head
}

func (x *readerList) push(r *Reader) {
	x.lazyInit()
	n := &r.node
	n.next = x.head.next
	n.prev = &x.head
	x.head.next.prev = n
	x.head.next = n
}

// remove unlinks r from whichever list it is on.
func (x *readerList) remove(r *Reader) {
	n := &r.node
	n.prev.next = n.next
	n.next.prev = n.prev
	n.next = nil
	n.prev = nil
}

// move unlinks r and pushes it onto dst.
func (x *readerList) move(r *Reader, dst *readerList) {
	x.remove(r)
	dst.push(r)
}

// spliceInto moves every reader of x onto dst, leaving x empty.
func (x *readerList) spliceInto(dst *readerList) {
	x.lazyInit()
	for !x.empty() {
		x.move(x.head.next.reader, dst)
	}
}
