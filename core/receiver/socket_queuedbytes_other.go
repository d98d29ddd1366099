//go:build !linux

package receiver

import "net"

// queuedBytes is unavailable outside Linux's SIOCINQ ioctl; bytesReadable
// falls back to the receiver's own accounting.
func queuedBytes(net.PacketConn) int {
	return 0
}
