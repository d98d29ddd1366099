package receiver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/net/ipv4"

	"github.com/searchktools/fast-core/core/logging"
)

// ErrInvalidMulticastGroup and ErrInterfaceNotFound are wrapped into the
// error openSocket returns, so callers can match on them with errors.Is
// instead of string-matching a message.
var (
	ErrInvalidMulticastGroup   = errors.New("fastcore: invalid multicast group address")
	ErrInvalidInterfaceAddress = errors.New("fastcore: invalid listen interface address")
	ErrInterfaceNotFound       = errors.New("fastcore: no local interface with the requested address")
)

// openSocket enables address reuse, binds a UDP4 socket on the
// configured port, and joins the multicast group. net.ListenMulticastUDP
// cannot bind to a specific non-wildcard interface IP the way the
// receiver's listenInterfaceIP parameter requires, so the socket is
// opened plain and the join is done explicitly through
// golang.org/x/net/ipv4, resolving the interface by address when one
// other than "0.0.0.0" is requested.
//
// SO_REUSEADDR (and SO_REUSEPORT where available) is set via a
// net.ListenConfig.Control callback, which runs before the socket is
// bound -- setting it after bind, as a PacketConn-level syscall would
// have to, is too late to let a second cooperating receiver bind the
// same multicast port, the normal redundant A/B feed deployment.
func (r *Receiver) openSocket() (net.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = setReuseAddrOnFD(fd)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", r.port))
	if err != nil {
		return nil, fmt.Errorf("fastcore: listen udp4 :%d: %w", r.port, err)
	}

	group := net.ParseIP(r.multicastGroupIP)
	if group == nil {
		pc.Close()
		return nil, fmt.Errorf("%w: %q", ErrInvalidMulticastGroup, r.multicastGroupIP)
	}

	var iface *net.Interface
	if r.listenInterfaceIP != "" && r.listenInterfaceIP != "0.0.0.0" {
		iface, err = interfaceForIP(r.listenInterfaceIP)
		if err != nil {
			pc.Close()
			return nil, err
		}
	}

	p := ipv4.NewPacketConn(pc)
	if err := p.JoinGroup(iface, &net.UDPAddr{IP: group}); err != nil {
		pc.Close()
		return nil, fmt.Errorf("fastcore: join multicast group %s: %w", r.multicastGroupIP, err)
	}

	if r.recvBufferBytes > 0 {
		if err := setReceiveBuffer(pc, r.recvBufferBytes); err != nil && r.consumer != nil {
			r.consumer.LogMessage(logging.Warning, fmt.Sprintf(
				"could not set SO_RCVBUF to %d bytes: %v", r.recvBufferBytes, err))
		}
	}

	return pc, nil
}

func interfaceForIP(ip string) (*net.Interface, error) {
	target := net.ParseIP(ip)
	if target == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInterfaceAddress, ip)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("fastcore: enumerate interfaces: %w", err)
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if ok && ipNet.IP.Equal(target) {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrInterfaceNotFound, ip)
}
