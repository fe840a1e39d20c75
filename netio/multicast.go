// Package netio supplies a network transport-stream input source: a
// UDP/multicast socket joined via golang.org/x/net/ipv4, usable as any
// io.Reader consumer's input (the cmd tools read files or stdin and do
// not use it), optionally paced with
// golang.org/x/time/rate so a slow downstream sink creates real
// back-pressure instead of an unbounded read-ahead buffer.
package netio

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/time/rate"
)

// packetConnReadBuffer sizes the read buffer used for each multicast
// datagram; a single UDP payload carrying TS packets is conventionally
// 7 packets (1316 bytes) or 1 packet (188 bytes), so 64KiB is
// generous headroom against a jumbo-framed sender.
const packetConnReadBuffer = 64 * 1024

// MulticastSource reads raw transport-stream bytes from a joined
// multicast group.
type MulticastSource struct {
	conn    *net.UDPConn
	pktConn *ipv4.PacketConn
	limiter *rate.Limiter
	buf     []byte
}

// DialMulticastUDP parses addr as a "udp://host:port" URL, joins the
// multicast group named by host on every available interface, and
// returns a MulticastSource reading from it. bytesPerSecond, if
// non-zero, paces Read calls via golang.org/x/time/rate; zero means
// unpaced.
func DialMulticastUDP(addr string, bytesPerSecond int) (*MulticastSource, error) {
	host, err := parseUDPURL(addr)
	if err != nil {
		return nil, err
	}

	group, err := net.ResolveUDPAddr("udp4", host)
	if err != nil {
		return nil, fmt.Errorf("netio: resolve %q: %w", host, err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: group.IP, Port: group.Port})
	if err != nil {
		return nil, fmt.Errorf("netio: listen %q: %w", host, err)
	}

	pktConn := ipv4.NewPacketConn(conn)
	ifaces, err := net.Interfaces()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("netio: enumerate interfaces: %w", err)
	}

	joined := 0
	for _, iface := range ifaces {
		if iface.Flags&net.FlagMulticast == 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if err := pktConn.JoinGroup(&iface, &net.UDPAddr{IP: group.IP}); err == nil {
			joined++
		}
	}
	if joined == 0 {
		conn.Close()
		return nil, fmt.Errorf("netio: could not join %s on any interface", group.IP)
	}

	s := &MulticastSource{
		conn:    conn,
		pktConn: pktConn,
		buf:     make([]byte, packetConnReadBuffer),
	}
	if bytesPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond)
	}
	return s, nil
}

// Read implements io.Reader, draining one datagram per call and
// pacing it against the configured rate limiter, if any.
func (s *MulticastSource) Read(p []byte) (int, error) {
	n, _, err := s.pktConn.ReadFrom(s.buf)
	if err != nil {
		return 0, err
	}
	if s.limiter != nil {
		if err := s.limiter.WaitN(context.Background(), n); err != nil {
			return 0, fmt.Errorf("netio: rate limiter: %w", err)
		}
	}
	return copy(p, s.buf[:n]), nil
}

// Close leaves the multicast group and closes the underlying socket.
func (s *MulticastSource) Close() error { return s.conn.Close() }

func parseUDPURL(addr string) (string, error) {
	const prefix = "udp://"
	if len(addr) <= len(prefix) || addr[:len(prefix)] != prefix {
		return "", fmt.Errorf("netio: %q is not a udp:// URL", addr)
	}
	return addr[len(prefix):], nil
}
