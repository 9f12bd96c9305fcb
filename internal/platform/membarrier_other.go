//go:build !linux

package platform

// Non-Linux platforms have no broadcast barrier; asymmetricBarrier stays
// false and every paired fence point uses StrongFence.

func broadcastBarrier() bool {
	return false
}
