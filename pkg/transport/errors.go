// Package transport provides the UDP and TCP sockets used to talk to a tracking controller.
//
// All operations are synchronous. Timeouts are expressed as time.Duration and are applied as
// socket deadlines; a zero timeout means "do not wait".
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
)

var (
	// ErrTimeout is returned when no data arrived before the deadline.
	ErrTimeout = errors.New("transport: timeout")
	// ErrClosed is returned when the remote peer closed a stream connection.
	ErrClosed = errors.New("transport: connection closed by peer")
	// ErrOverflow is returned when a message filled the whole receive buffer.
	ErrOverflow = errors.New("transport: message exceeds buffer size")
	// ErrShortWrite is returned when a send transmitted fewer bytes than requested.
	ErrShortWrite = errors.New("transport: short write")
	// ErrNotOpen is returned when an operation is attempted on a closed socket.
	ErrNotOpen = errors.New("transport: socket not open")
)

// NetworkError wraps an operating system level socket failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// classify maps a net error onto the package sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return &NetworkError{Op: op, Err: err}
}
