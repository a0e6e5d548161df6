package dtrack

import (
	"errors"
	"fmt"

	"monolithgo/pkg/protocol"
)

var (
	// ErrTimeout means no datagram or reply arrived in time. It is routine on the data path.
	ErrTimeout = errors.New("dtrack: timeout")
	// ErrNetwork wraps socket failures, including oversized datagrams.
	ErrNetwork = errors.New("dtrack: network error")
	// ErrParse means received text did not match the wire format.
	ErrParse = protocol.ErrParse
	// ErrProtocol means a well-formed reply did not answer the request that was sent.
	ErrProtocol = errors.New("dtrack: protocol violation")
	// ErrNotSupported is returned for operations the remote system variant cannot perform.
	ErrNotSupported = errors.New("dtrack: operation not supported by remote system")
	// ErrControlUnavailable is returned once the control connection is gone.
	ErrControlUnavailable = errors.New("dtrack: control channel unavailable")
	// ErrNoMessage is returned by GetMessage when the controller has nothing queued.
	ErrNoMessage = errors.New("dtrack: no message pending")
	// ErrCommandTooLong is returned for commands exceeding MaxCommandLen.
	ErrCommandTooLong = errors.New("dtrack: command too long")
)

// ServerError is a structured error reply from the controller ("dtrack2 err <code> "<text>"").
type ServerError struct {
	Code        int
	Description string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("dtrack: server error %d: %s", e.Code, e.Description)
}
