package transport

import (
	"errors"
	"io"
	"net"
	"strconv"
	"time"
)

// TCPConn is a client stream connection.
type TCPConn struct {
	conn net.Conn
}

// DialTCP connects to ip:port, giving up after timeout.
func DialTCP(ip net.IP, port int, timeout time.Duration) (*TCPConn, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.Dial("tcp4", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	if err != nil {
		return nil, classify("connect", err)
	}
	return &TCPConn{conn: c}, nil
}

// Close closes the connection. Safe on nil or closed connections.
func (t *TCPConn) Close() error {
	if t == nil || t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// RemoteAddr returns the peer address.
func (t *TCPConn) RemoteAddr() net.Addr {
	if t == nil || t.conn == nil {
		return nil
	}
	return t.conn.RemoteAddr()
}

// Send writes b completely or fails. A timeout <= 0 means no write deadline.
func (t *TCPConn) Send(b []byte, timeout time.Duration) error {
	if t == nil || t.conn == nil {
		return ErrNotOpen
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return &NetworkError{Op: "set deadline", Err: err}
	}

	n, err := t.conn.Write(b)
	if err != nil {
		return classify("send", err)
	}
	if n != len(b) {
		return ErrShortWrite
	}
	return nil
}

// Receive performs one read of up to len(buf) bytes.
//
// It returns ErrTimeout if nothing arrived in time, ErrClosed if the peer closed the
// connection, and ErrOverflow (with the length) if the read filled buf completely.
func (t *TCPConn) Receive(buf []byte, timeout time.Duration) (int, error) {
	if t == nil || t.conn == nil {
		return 0, ErrNotOpen
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, &NetworkError{Op: "set deadline", Err: err}
	}

	n, err := t.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, ErrClosed
		}
		return 0, classify("receive", err)
	}
	if n == 0 {
		return 0, ErrClosed
	}
	if n >= len(buf) {
		return n, ErrOverflow
	}
	return n, nil
}
