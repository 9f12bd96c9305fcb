// Package hpref implements hazard pointers combined with per-object
// reference counters, for dereferencing a concurrently-updated pointer and
// keeping the pointee alive across a read-side critical section.
//
// The fast path publishes the observed pointer into a per-CPU hazard slot
// and re-validates the source; writers retiring an object call Synchronize
// to wait until no slot still advertises it. Long critical sections, and
// readers that had to fall back to the reserved emergency slot, promote the
// hazard pointer to a reference count instead, releasing the slot
// immediately.
//
// Get is bounded: at most one busy-wait on the emergency slot and one
// publication re-load per change of the published value. Writers may block
// indefinitely in Synchronize.
package hpref
