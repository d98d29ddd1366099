//go:build !linux && !darwin

package receiver

import "net"

// setReceiveBuffer is a no-op on platforms without a direct SO_RCVBUF
// syscall path wired up here.
func setReceiveBuffer(net.PacketConn, int) error {
	return nil
}

// setReuseAddrOnFD is a no-op on platforms without a direct SO_REUSEADDR
// syscall path wired up here.
func setReuseAddrOnFD(uintptr) error {
	return nil
}
