package transport

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loopback = net.IPv4(127, 0, 0, 1)

func openTestSocket(t *testing.T) *UDPConn {
	t.Helper()
	u, err := OpenUDP(0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = u.Close() })
	return u
}

func TestOpenUDP_AssignsPort(t *testing.T) {
	u := openTestSocket(t)
	assert.NotZero(t, u.Port())
	assert.Nil(t, u.Group())
}

func TestOpenUDP_RejectsUnicastGroup(t *testing.T) {
	_, err := OpenUDP(0, net.IPv4(10, 0, 0, 1))
	var ne *NetworkError
	assert.True(t, errors.As(err, &ne), "expected NetworkError, got %v", err)
}

func TestUDPReceive_Timeout(t *testing.T) {
	u := openTestSocket(t)
	buf := make([]byte, 64)

	start := time.Now()
	_, err := u.Receive(buf, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestUDPReceive_ZeroTimeoutEmpty(t *testing.T) {
	u := openTestSocket(t)
	_, err := u.Receive(make([]byte, 64), 0)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestUDPReceive_DrainKeepsLatest(t *testing.T) {
	rx := openTestSocket(t)
	tx := openTestSocket(t)

	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, tx.Send([]byte(msg), loopback, rx.Port(), time.Second))
	}
	time.Sleep(50 * time.Millisecond)

	buf := make([]byte, 64)
	n, err := rx.Receive(buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "third", string(buf[:n]))

	_, err = rx.Receive(buf, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout, "queue should be empty after drain")
}

func TestUDPReceive_Overflow(t *testing.T) {
	rx := openTestSocket(t)
	tx := openTestSocket(t)

	require.NoError(t, tx.Send([]byte("0123456789abcdef"), loopback, rx.Port(), time.Second))

	buf := make([]byte, 8)
	n, err := rx.Receive(buf, time.Second)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, 8, n)
}

func TestUDPReceive_ExactFitBelowBuffer(t *testing.T) {
	rx := openTestSocket(t)
	tx := openTestSocket(t)

	require.NoError(t, tx.Send([]byte("1234567"), loopback, rx.Port(), time.Second))

	buf := make([]byte, 8)
	n, err := rx.Receive(buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestUDPConn_CloseIsIdempotent(t *testing.T) {
	u, err := OpenUDP(0, nil)
	require.NoError(t, err)
	assert.NoError(t, u.Close())
	assert.NoError(t, u.Close())

	var nilConn *UDPConn
	assert.NoError(t, nilConn.Close())

	_, err = u.Receive(make([]byte, 8), time.Millisecond)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, u.Send([]byte("x"), loopback, 1, 0), ErrNotOpen)
}

func TestResolveIP(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		want    string
		wantErr bool
	}{
		{name: "Literal", host: "192.168.0.10", want: "192.168.0.10"},
		{name: "Localhost", host: "localhost", want: "127.0.0.1"},
		{name: "IPv6Literal", host: "::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip, err := ResolveIP(tt.host)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ip.String())
		})
	}
}
