// Package dtrack implements the client side of an A.R.T. DTrack style tracking controller:
// frames arrive as ASCII datagrams over UDP, and an optional TCP connection carries control
// commands for newer controllers.
package dtrack

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"monolithgo/pkg/transport"
)

// Protocol defaults.
const (
	DefaultServerPort     = 50105
	LegacyCommandPort     = 5001
	DefaultBufferSize     = 20000
	DefaultDataTimeout    = time.Second
	DefaultControlTimeout = 10 * time.Second
	MaxCommandLen         = 200
	MaxOutputChannel      = 5
)

// RemoteSystem is the controller variant.
type RemoteSystem int

const (
	RemoteUnknown RemoteSystem = iota
	RemoteDTrack               // legacy: UDP commands only
	RemoteDTrack2              // TCP control channel
)

func (r RemoteSystem) String() string {
	switch r {
	case RemoteDTrack:
		return "dtrack"
	case RemoteDTrack2:
		return "dtrack2"
	default:
		return "unknown"
	}
}

// ParseRemoteSystem accepts "unknown", "dtrack" or "dtrack2".
func ParseRemoteSystem(s string) (RemoteSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return RemoteUnknown, nil
	case "dtrack", "legacy":
		return RemoteDTrack, nil
	case "dtrack2":
		return RemoteDTrack2, nil
	}
	return RemoteUnknown, fmt.Errorf("unknown remote system %q", s)
}

// State is the lifecycle phase of a session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateStreaming    State = "streaming"
)

// Config describes how to reach the controller.
type Config struct {
	// ServerHost is the controller address. Empty means listen only. A multicast address
	// together with ServerPort 0 joins that group instead of contacting a controller.
	ServerHost string
	// ServerPort is the control port; 0 selects multicast listening when ServerHost is set.
	ServerPort int
	// DataPort is the local UDP port; 0 lets the operating system choose.
	DataPort       int
	RemoteSystem   RemoteSystem
	BufferSize     int
	DataTimeout    time.Duration
	ControlTimeout time.Duration
}

// DefaultConfig returns a configuration with protocol defaults and no controller host.
func DefaultConfig() Config {
	return Config{
		ServerPort:     DefaultServerPort,
		RemoteSystem:   RemoteUnknown,
		BufferSize:     DefaultBufferSize,
		DataTimeout:    DefaultDataTimeout,
		ControlTimeout: DefaultControlTimeout,
	}
}

// Session is one connection to a controller.
//
// Receive and the frame accessors belong to a single goroutine (the update loop). Control
// operations are serialized internally and may be called from any goroutine.
type Session struct {
	cfg    Config
	log    *slog.Logger
	remote RemoteSystem

	remoteIP   net.IP
	remotePort int
	multicast  bool

	udp   *transport.UDPConn
	buf   []byte
	frame *Frame
	spare *Frame

	dataMu      sync.Mutex
	lastDataErr error

	ctrlMu         sync.Mutex
	tcp            *transport.TCPConn
	ctrlBuf        []byte
	lastControlErr error
	lastServerErr  *ServerError
	message        Message
	channel        uint
	streaming      bool
	closed         bool
}

// New opens the data socket and, unless the controller is known to be legacy, tries to open
// the control connection. Only a data socket failure is fatal: if the control connection cannot
// be made the session continues in data-only mode, and an unknown controller is assumed to be
// legacy.
func New(cfg Config) (*Session, error) {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.DataTimeout <= 0 {
		cfg.DataTimeout = def.DataTimeout
	}
	if cfg.ControlTimeout <= 0 {
		cfg.ControlTimeout = def.ControlTimeout
	}

	s := &Session{
		cfg:        cfg,
		log:        slog.Default().With("component", "dtrack"),
		remote:     cfg.RemoteSystem,
		remotePort: cfg.ServerPort,
		buf:        make([]byte, cfg.BufferSize),
		frame:      &Frame{Timestamp: -1},
		spare:      &Frame{},
		ctrlBuf:    make([]byte, MaxCommandLen+1),
	}

	if cfg.ServerHost != "" {
		ip, err := transport.ResolveIP(cfg.ServerHost)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tracking host: %w", err)
		}
		s.remoteIP = ip
	}
	s.multicast = s.remoteIP != nil && cfg.ServerPort == 0

	var group net.IP
	if s.multicast {
		group = s.remoteIP
	}
	udp, err := transport.OpenUDP(cfg.DataPort, group)
	if err != nil {
		return nil, fmt.Errorf("failed to open data socket: %w", err)
	}
	s.udp = udp

	switch {
	case s.multicast:
		s.remotePort = 0
		s.log.Info("Listening for multicast tracking data", "group", group, "port", udp.Port())
	case s.remote == RemoteDTrack:
		s.log.Info("Using legacy controller", "host", cfg.ServerHost, "port", s.remotePort, "data_port", udp.Port())
	default:
		s.connectControl()
	}

	return s, nil
}

func (s *Session) connectControl() {
	if s.remoteIP == nil {
		if s.remote == RemoteUnknown {
			s.remote = RemoteDTrack
			s.remotePort = LegacyCommandPort
		}
		s.log.Info("No tracking host configured, listening only", "data_port", s.udp.Port())
		return
	}

	tcp, err := transport.DialTCP(s.remoteIP, s.cfg.ServerPort, s.cfg.ControlTimeout)
	if err != nil {
		if s.remote == RemoteUnknown {
			s.remote = RemoteDTrack
			s.remotePort = LegacyCommandPort
		}
		s.log.Warn("Control connection failed, continuing in data-only mode",
			"host", s.cfg.ServerHost, "port", s.cfg.ServerPort, "remote", s.remote, "error", err)
		return
	}

	s.tcp = tcp
	s.remote = RemoteDTrack2
	s.log.Info("Connected to controller", "host", s.cfg.ServerHost, "port", s.cfg.ServerPort, "data_port", s.udp.Port())
}

// RemoteSystem returns the controller variant as resolved at construction.
func (s *Session) RemoteSystem() RemoteSystem { return s.remote }

// DataPort returns the local UDP port frames are received on.
func (s *Session) DataPort() int { return s.udp.Port() }

// Multicast reports whether the session joined a multicast group.
func (s *Session) Multicast() bool { return s.multicast }

// DataValid reports whether the data socket is open.
func (s *Session) DataValid() bool {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	return !s.closed
}

// ControlValid reports whether the control connection is up.
func (s *Session) ControlValid() bool {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	return s.tcp != nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	switch {
	case s.closed:
		return StateDisconnected
	case s.streaming:
		return StateStreaming
	default:
		return StateConnected
	}
}

// Close releases both sockets. The update loop must have stopped before Close is called.
func (s *Session) Close() error {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.streaming = false
	tcpErr := s.tcp.Close()
	s.tcp = nil
	udpErr := s.udp.Close()
	return errors.Join(udpErr, tcpErr)
}

// Receive waits for the next datagram, keeps only the newest one queued, and decodes it.
//
// It returns true if a new frame was committed. On false the previous frame stays intact and
// LastDataError tells why: ErrTimeout, ErrNetwork or ErrParse.
func (s *Session) Receive() bool {
	n, err := s.udp.Receive(s.buf, s.cfg.DataTimeout)
	if err != nil {
		switch {
		case errors.Is(err, transport.ErrTimeout):
			s.setDataErr(fmt.Errorf("%w: no data within %v", ErrTimeout, s.cfg.DataTimeout))
		case errors.Is(err, transport.ErrOverflow):
			s.setDataErr(fmt.Errorf("%w: datagram of %d bytes fills the %d byte buffer: %w", ErrNetwork, n, len(s.buf), err))
		default:
			s.setDataErr(fmt.Errorf("%w: %w", ErrNetwork, err))
		}
		return false
	}

	if err := s.spare.Parse(string(s.buf[:n]), s.frame); err != nil {
		s.setDataErr(err)
		return false
	}
	s.frame, s.spare = s.spare, s.frame
	s.setDataErr(nil)
	return true
}

func (s *Session) setDataErr(err error) {
	s.dataMu.Lock()
	s.lastDataErr = err
	s.dataMu.Unlock()
}

// LastDataError returns the outcome of the latest Receive or SendCommand, nil on success.
func (s *Session) LastDataError() error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.lastDataErr
}

// LastControlError returns the outcome of the latest control exchange, nil on success.
func (s *Session) LastControlError() error {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	return s.lastControlErr
}

// LastServerError returns the error reply of the latest control exchange, or nil.
func (s *Session) LastServerError() *ServerError {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	return s.lastServerErr
}

// Frame accessors. They read the latest committed frame and share Receive's goroutine.

// FrameCounter returns the counter of the latest frame.
func (s *Session) FrameCounter() uint32 { return s.frame.Counter }

// Timestamp returns the latest frame's timestamp, or -1 if it carried none.
func (s *Session) Timestamp() float64 { return s.frame.Timestamp }

// Frame returns a copy of the latest frame.
func (s *Session) Frame() Frame { return s.frame.Clone() }

func (s *Session) NumBodies() int    { return len(s.frame.Bodies) }
func (s *Session) NumFlySticks() int { return len(s.frame.FlySticks) }
func (s *Session) NumMeaTools() int  { return len(s.frame.MeaTools) }
func (s *Session) NumHands() int     { return len(s.frame.Hands) }
func (s *Session) NumMarkers() int   { return len(s.frame.Markers) }

// Body returns the body with the given id.
func (s *Session) Body(id int) (Body, bool) {
	if id < 0 || id >= len(s.frame.Bodies) {
		return Body{}, false
	}
	return s.frame.Bodies[id], true
}

// FlyStick returns the flystick with the given id.
func (s *Session) FlyStick(id int) (FlyStick, bool) {
	if id < 0 || id >= len(s.frame.FlySticks) {
		return FlyStick{}, false
	}
	return s.frame.FlySticks[id], true
}

// MeaTool returns the measurement tool with the given id.
func (s *Session) MeaTool(id int) (MeaTool, bool) {
	if id < 0 || id >= len(s.frame.MeaTools) {
		return MeaTool{}, false
	}
	return s.frame.MeaTools[id], true
}

// Hand returns the hand with the given id.
func (s *Session) Hand(id int) (Hand, bool) {
	if id < 0 || id >= len(s.frame.Hands) {
		return Hand{}, false
	}
	return s.frame.Hands[id], true
}

// Marker returns the marker at index i of the latest frame.
func (s *Session) Marker(i int) (Marker, bool) {
	if i < 0 || i >= len(s.frame.Markers) {
		return Marker{}, false
	}
	return s.frame.Markers[i], true
}
