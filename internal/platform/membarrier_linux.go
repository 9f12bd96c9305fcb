//go:build linux

package platform

import (
	"golang.org/x/sys/unix"
)

func init() {
	asymmetricBarrier = registerMembarrier()
}

// registerMembarrier queries and registers for MEMBARRIER_CMD_PRIVATE_EXPEDITED.
// Registration is required before the expedited command may be used; failure
// at any step simply leaves the package on the symmetric-fence fallback.
func registerMembarrier() bool {
	cmds, _, errno := unix.Syscall(unix.SYS_MEMBARRIER, unix.MEMBARRIER_CMD_QUERY, 0, 0)
	if errno != 0 {
		return false
	}
	if cmds&unix.MEMBARRIER_CMD_PRIVATE_EXPEDITED == 0 ||
		cmds&unix.MEMBARRIER_CMD_REGISTER_PRIVATE_EXPEDITED == 0 {
		return false
	}
	_, _, errno = unix.Syscall(unix.SYS_MEMBARRIER, unix.MEMBARRIER_CMD_REGISTER_PRIVATE_EXPEDITED, 0, 0)
	return errno == 0
}

// broadcastBarrier issues an expedited private membarrier: every thread of
// the process passes through a full memory barrier before the call returns.
// Returns false if the syscall failed, in which case the caller falls back
// to a local fence.
func broadcastBarrier() bool {
	_, _, errno := unix.Syscall(unix.SYS_MEMBARRIER, unix.MEMBARRIER_CMD_PRIVATE_EXPEDITED, 0, 0)
	return errno == 0
}
