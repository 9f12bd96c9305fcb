//go:build linux

package platform

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// FutexWait blocks until the word at addr no longer holds expected, or until
// a wake or a spurious return. The kernel re-checks *addr == expected under
// its own lock, so a wake that races the sleep is never lost. Callers must
// loop on their condition; EAGAIN and EINTR are absorbed here as ordinary
// spurious returns.
func FutexWait(addr *int32, expected int32) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAIT|unix.FUTEX_PRIVATE_FLAG),
		uintptr(uint32(expected)),
		0, 0, 0)
}

// FutexWake wakes up to n waiters blocked in FutexWait on addr.
func FutexWake(addr *int32, n int32) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAKE|unix.FUTEX_PRIVATE_FLAG),
		uintptr(uint32(n)),
		0, 0, 0)
}
