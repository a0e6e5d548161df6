//go:build !unix

package transport

import (
	"errors"
	"net"
	"syscall"
	"time"
)

// pollWait bounds the non-blocking read emulation on platforms without MSG_DONTWAIT.
const pollWait = time.Millisecond

func readNow(c *net.UDPConn, buf []byte) (n int, ok bool, err error) {
	if err := c.SetReadDeadline(time.Now().Add(pollWait)); err != nil {
		return 0, false, err
	}
	defer func() { _ = c.SetReadDeadline(time.Time{}) }()

	n, err = c.Read(buf)
	if err != nil {
		if errors.Is(classify("receive", err), ErrTimeout) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return n, true, nil
}

func reuseAddr(_, _ string, _ syscall.RawConn) error { return nil }
