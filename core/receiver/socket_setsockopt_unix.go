//go:build linux || darwin

package receiver

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// setReceiveBuffer raises the socket's OS receive buffer (SO_RCVBUF),
// guarding against burst loss when a multicast feed outruns the default
// kernel buffer under load.
func setReceiveBuffer(pc net.PacketConn, bytes int) error {
	sc, ok := pc.(syscall.Conn)
	if !ok {
		return fmt.Errorf("fastcore: connection does not support SyscallConn")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bytes)
	}); err != nil {
		return err
	}
	return sockErr
}

// setReuseAddrOnFD sets SO_REUSEADDR (and, where available, SO_REUSEPORT)
// on fd, so that cooperating processes can each bind the same multicast
// port -- the normal redundant A/B feed deployment. It is called from a
// net.ListenConfig.Control callback, before the socket is bound, since
// SO_REUSEADDR has no effect if set after bind.
func setReuseAddrOnFD(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}
