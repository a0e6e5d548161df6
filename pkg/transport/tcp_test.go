package transport

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startPeer listens on loopback and hands every accepted connection to handle.
func startPeer(t *testing.T, handle func(net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(c)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestTCP_SendReceive(t *testing.T) {
	port := startPeer(t, func(c net.Conn) {
		defer c.Close()
		buf := make([]byte, 64)
		n, err := c.Read(buf)
		if err != nil {
			return
		}
		_, _ = c.Write(buf[:n])
		time.Sleep(200 * time.Millisecond)
	})

	conn, err := DialTCP(loopback, port, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send([]byte("ping"), time.Second))

	buf := make([]byte, 64)
	n, err := conn.Receive(buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
}

func TestTCP_ReceiveTimeout(t *testing.T) {
	port := startPeer(t, func(c net.Conn) {
		time.Sleep(300 * time.Millisecond)
		c.Close()
	})

	conn, err := DialTCP(loopback, port, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Receive(make([]byte, 16), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTCP_PeerClosed(t *testing.T) {
	port := startPeer(t, func(c net.Conn) {
		c.Close()
	})

	conn, err := DialTCP(loopback, port, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Receive(make([]byte, 16), time.Second)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTCP_Overflow(t *testing.T) {
	port := startPeer(t, func(c net.Conn) {
		defer c.Close()
		_, _ = c.Write([]byte("0123456789"))
		time.Sleep(200 * time.Millisecond)
	})

	conn, err := DialTCP(loopback, port, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	n, err := conn.Receive(make([]byte, 4), time.Second)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, 4, n)
}

func TestTCP_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = DialTCP(loopback, port, time.Second)
	var ne *NetworkError
	assert.True(t, errors.As(err, &ne), "expected NetworkError, got %v", err)
}

func TestTCP_NilConn(t *testing.T) {
	var c *TCPConn
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send([]byte("x"), 0), ErrNotOpen)
	_, err := c.Receive(make([]byte, 4), time.Millisecond)
	assert.ErrorIs(t, err, ErrNotOpen)
}
