package hpref_test

import (
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/go-urcu/hpref"
)

// Example demonstrates the publish / dereference / retire cycle.
func Example() {
	type config struct {
		timeoutMillis int
	}

	var current atomic.Pointer[hpref.Node[config]]

	// Publish the initial configuration.
	hpref.SetPointer(&current, hpref.NewNode(config{timeoutMillis: 100}, func(n *hpref.Node[config]) {
		fmt.Println("released:", n.Value.timeoutMillis)
	}))

	// A reader dereferences it, protected by a hazard pointer.
	var ctx hpref.Ctx[config]
	if hpref.Get(&current, &ctx) {
		fmt.Println("observed:", ctx.Pointer().Value.timeoutMillis)
		ctx.Put()
	}

	// The writer replaces the configuration and retires the old node: wait
	// for hazard pointers, then drop the allocator's reference.
	old := current.Load()
	hpref.SetPointer(&current, hpref.NewNode(config{timeoutMillis: 250}, func(n *hpref.Node[config]) {
		fmt.Println("released:", n.Value.timeoutMillis)
	}))
	hpref.SynchronizePut(old)

	// Output:
	// observed: 100
	// released: 100
}
