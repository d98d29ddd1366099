//go:build linux

package receiver

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// queuedBytes reports how many bytes the kernel is currently holding in
// the socket's receive queue, via the SIOCINQ ioctl, for bytesReadable.
func queuedBytes(pc net.PacketConn) int {
	sc, ok := pc.(syscall.Conn)
	if !ok {
		return 0
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0
	}
	var n int
	_ = raw.Control(func(fd uintptr) {
		if v, err := unix.IoctlGetInt(int(fd), unix.SIOCINQ); err == nil {
			n = v
		}
	})
	return n
}
