package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

// UDPConn is a bound UDP socket, optionally joined to an IPv4 multicast group.
type UDPConn struct {
	conn  *net.UDPConn
	pc    *ipv4.PacketConn
	group net.IP
	port  int
}

// OpenUDP binds a UDP socket to the given local port on all interfaces.
// Port 0 lets the operating system choose; the chosen port is available from Port.
// If group is non-nil the socket joins that multicast group on the default interface.
func OpenUDP(port int, group net.IP) (*UDPConn, error) {
	lc := net.ListenConfig{}
	if group != nil {
		if group.To4() == nil || !group.IsMulticast() {
			return nil, &NetworkError{Op: "join group", Err: fmt.Errorf("%s is not an IPv4 multicast address", group)}
		}
		lc.Control = reuseAddr
	}

	pconn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, &NetworkError{Op: "bind", Err: err}
	}
	conn := pconn.(*net.UDPConn)

	u := &UDPConn{conn: conn}
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		u.port = addr.Port
	}

	if group != nil {
		pc := ipv4.NewPacketConn(conn)
		if err := pc.JoinGroup(nil, &net.UDPAddr{IP: group}); err != nil {
			conn.Close()
			return nil, &NetworkError{Op: "join group", Err: err}
		}
		u.pc = pc
		u.group = group
	}

	return u, nil
}

// Port returns the bound local port.
func (u *UDPConn) Port() int {
	if u == nil {
		return 0
	}
	return u.port
}

// Group returns the joined multicast group, or nil.
func (u *UDPConn) Group() net.IP {
	if u == nil {
		return nil
	}
	return u.group
}

// Close leaves the multicast group (if any) and closes the socket.
// It is safe to call on a nil or already closed connection.
func (u *UDPConn) Close() error {
	if u == nil || u.conn == nil {
		return nil
	}
	if u.pc != nil && u.group != nil {
		_ = u.pc.LeaveGroup(nil, &net.UDPAddr{IP: u.group})
	}
	err := u.conn.Close()
	u.conn = nil
	u.pc = nil
	return err
}

// Receive waits up to timeout for a datagram, then drains every datagram already queued on the
// socket without waiting and returns only the last one. Stale data is dropped so that the caller
// always sees the newest state.
//
// If the returned datagram filled buf completely it may have been truncated and ErrOverflow is
// returned together with its length.
func (u *UDPConn) Receive(buf []byte, timeout time.Duration) (int, error) {
	if u == nil || u.conn == nil {
		return 0, ErrNotOpen
	}

	var n int
	if timeout > 0 {
		if err := u.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, &NetworkError{Op: "set deadline", Err: err}
		}
		var err error
		n, err = u.conn.Read(buf)
		if err != nil {
			return 0, classify("receive", err)
		}
		if err := u.conn.SetReadDeadline(time.Time{}); err != nil {
			return 0, &NetworkError{Op: "set deadline", Err: err}
		}
	} else {
		if err := u.conn.SetReadDeadline(time.Time{}); err != nil {
			return 0, &NetworkError{Op: "set deadline", Err: err}
		}
		m, ok, err := readNow(u.conn, buf)
		if err != nil {
			return 0, &NetworkError{Op: "receive", Err: err}
		}
		if !ok {
			return 0, ErrTimeout
		}
		n = m
	}

	// Drain. A failing read here ends the drain; the last good datagram is still in buf.
	for {
		m, ok, err := readNow(u.conn, buf)
		if err != nil || !ok {
			break
		}
		n = m
	}

	if n >= len(buf) {
		return n, ErrOverflow
	}
	return n, nil
}

// Send writes one datagram to ip:port. A timeout <= 0 means no write deadline.
func (u *UDPConn) Send(b []byte, ip net.IP, port int, timeout time.Duration) error {
	if u == nil || u.conn == nil {
		return ErrNotOpen
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := u.conn.SetWriteDeadline(deadline); err != nil {
		return &NetworkError{Op: "set deadline", Err: err}
	}

	n, err := u.conn.WriteToUDP(b, &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		return classify("send", err)
	}
	if n != len(b) {
		return ErrShortWrite
	}
	return nil
}
