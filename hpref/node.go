package hpref

import (
	"fmt"
	"sync/atomic"
)

// refCount is a plain object reference counter. It starts at one (the
// allocator's reference), is monotone once it reaches zero, and reports the
// transition to zero exactly once, on the thread that performed it.
type refCount struct {
	v atomic.Int64
}

func (x *refCount) init() {
	x.v.Store(1)
}

// acquire takes an additional reference. It may only be called while
// existence is guaranteed by another mechanism: a hazard slot advertising
// the object, or a reference the caller already holds.
func (x *refCount) acquire() {
	x.v.Add(1)
}

// release drops one reference, returning true on the decrement that reached
// zero. The atomic read-modify-write provides the release/acquire ordering
// required between the last access to the object and its reclamation.
func (x *refCount) release() bool {
	n := x.v.Add(-1)
	if n < 0 {
		panic(fmt.Errorf(`hpref: reference counter underflow`))
	}
	return n == 0
}

// Node is the reclaimable unit. Embed the user payload as Value; the node
// itself carries the reference counter and the release callback.
//
// Nodes are heap objects, so their alignment comfortably exceeds the two
// bytes the period tag in hazard slots requires.
type Node[T any] struct {
	refs    refCount
	release func(*Node[T])

	// Value is the user payload. It must be fully initialized before the
	// node is published via SetPointer.
	Value T
}

// NewNode allocates a node holding value, with release invoked exactly once
// when the reference count reaches zero. A nil release is permitted for
// nodes reclaimed by the garbage collector alone.
func NewNode[T any](value T, release func(*Node[T])) *Node[T] {
	n := &Node[T]{Value: value}
	n.Init(release)
	return n
}

// Init initializes a caller-allocated node: reference count one, with
// release invoked when it reaches zero. It must complete before the node is
// published.
func (x *Node[T]) Init(release func(*Node[T])) {
	x.refs.init()
	x.release = release
}

// Put drops one reference to the node. On the drop that reaches zero the
// release callback runs, once, on the calling goroutine. No access to the
// node is permitted after that point.
func (x *Node[T]) Put() {
	if x.refs.release() {
		if x.release != nil {
			x.release(x)
		}
	}
}
