// Package dtracksim is a fake tracking controller. It streams scripted frames over UDP and
// answers the DTrack2 control protocol over TCP, or the legacy UDP command set.
package dtracksim

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Flystick wire formats the simulator can emit.
const (
	FormatLegacy = "6df"
	FormatV2     = "6df2"
)

// Config holds simulator settings.
type Config struct {
	// ControlAddr is the TCP listen address for the DTrack2 control protocol. Empty disables
	// the control channel, which makes the simulator look like a legacy controller.
	ControlAddr string
	// CommandAddr is the UDP listen address for legacy commands. Empty disables it.
	CommandAddr string
	// Interval between frames while tracking.
	Interval time.Duration
	// FlyStickFormat is FormatLegacy or FormatV2.
	FlyStickFormat string
	// Bodies is the number of calibrated standard bodies; body 0 follows the head script.
	Bodies int
}

// DefaultConfig returns a loopback DTrack2 simulator at 60 frames per second.
func DefaultConfig() Config {
	return Config{
		ControlAddr:    "127.0.0.1:0",
		Interval:       time.Second / 60,
		FlyStickFormat: FormatV2,
		Bodies:         1,
	}
}

// Server is a running simulator.
type Server struct {
	mu       sync.Mutex
	cfg      Config
	log      *slog.Logger
	ln       net.Listener
	cmdConn  *net.UDPConn
	dataConn *net.UDPConn
	dest     *net.UDPAddr
	tracking bool
	frame    uint32
	start    time.Time
	params   map[string]string
	messages []string
	replies  map[string]string
	commands []string
	conns    map[net.Conn]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New opens the simulator sockets. Call Start to begin serving.
func New(cfg Config) (*Server, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.FlyStickFormat == "" {
		cfg.FlyStickFormat = FormatV2
	}

	s := &Server{
		cfg:     cfg,
		log:     slog.Default().With("component", "dtracksim"),
		params:  map[string]string{"system access": "full", "output active": "0"},
		replies: make(map[string]string),
		conns:   make(map[net.Conn]struct{}),
		stopCh:  make(chan struct{}),
		start:   time.Now(),
	}

	data, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, fmt.Errorf("failed to open data socket: %w", err)
	}
	s.dataConn = data

	if cfg.ControlAddr != "" {
		ln, err := net.Listen("tcp4", cfg.ControlAddr)
		if err != nil {
			data.Close()
			return nil, fmt.Errorf("failed to listen for control: %w", err)
		}
		s.ln = ln
	}

	if cfg.CommandAddr != "" {
		addr, err := net.ResolveUDPAddr("udp4", cfg.CommandAddr)
		if err == nil {
			s.cmdConn, err = net.ListenUDP("udp4", addr)
		}
		if err != nil {
			s.closeSockets()
			return nil, fmt.Errorf("failed to listen for commands: %w", err)
		}
	}

	return s, nil
}

// Start launches the serving goroutines.
func (s *Server) Start() {
	if s.ln != nil {
		s.wg.Add(1)
		go s.acceptLoop()
	}
	if s.cmdConn != nil {
		s.wg.Add(1)
		go s.commandLoop()
	}
	s.wg.Add(1)
	go s.frameLoop()
}

// Close stops all goroutines and closes every socket.
func (s *Server) Close() error {
	select {
	case <-s.stopCh:
		return nil
	default:
	}
	close(s.stopCh)
	s.closeSockets()
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *Server) closeSockets() {
	if s.ln != nil {
		s.ln.Close()
	}
	if s.cmdConn != nil {
		s.cmdConn.Close()
	}
	if s.dataConn != nil {
		s.dataConn.Close()
	}
}

// ControlPort returns the TCP control port, or 0 when disabled.
func (s *Server) ControlPort() int {
	if s.ln == nil {
		return 0
	}
	return s.ln.Addr().(*net.TCPAddr).Port
}

// CommandPort returns the legacy UDP command port, or 0 when disabled.
func (s *Server) CommandPort() int {
	if s.cmdConn == nil {
		return 0
	}
	return s.cmdConn.LocalAddr().(*net.UDPAddr).Port
}

// SetDestination sets where frames are sent, as a controller's output configuration would.
func (s *Server) SetDestination(addr *net.UDPAddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dest = addr
}

// SetTracking switches frame output on or off.
func (s *Server) SetTracking(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking = on
}

// Tracking reports whether frames are being produced.
func (s *Server) Tracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracking
}

// SetParam stores a controller parameter; name is "<category> <name>".
func (s *Server) SetParam(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[name] = value
}

// Param returns a stored parameter.
func (s *Server) Param(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.params[name]
	return v, ok
}

// QueueMessage adds a message for the next "dtrack2 getmsg".
func (s *Server) QueueMessage(origin, status string, frame, errorID uint32, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, fmt.Sprintf("dtrack2 msg %s %s %d %d %q", origin, status, frame, errorID, text))
}

// SetReply forces the reply to an exact command string.
func (s *Server) SetReply(cmd, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[cmd] = reply
}

// Commands returns every command received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// DropClients closes all open control connections.
func (s *Server) DropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
		delete(s.conns, c)
	}
}

// SendRaw sends one datagram to the current destination.
func (s *Server) SendRaw(datagram string) error {
	s.mu.Lock()
	dest := s.dest
	s.mu.Unlock()
	if dest == nil {
		return errors.New("dtracksim: no destination")
	}
	_, err := s.dataConn.WriteToUDP([]byte(datagram), dest)
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveControl(c)
	}
}

// serveControl answers NUL terminated commands on one connection.
func (s *Server) serveControl(c net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		c.Close()
	}()

	r := bufio.NewReader(c)
	for {
		raw, err := r.ReadBytes(0)
		if err != nil {
			return
		}
		cmd := string(bytes.TrimRight(raw, "\x00"))
		reply := s.handleControl(cmd, c.RemoteAddr())
		if reply == "" {
			continue
		}
		if _, err := c.Write(append([]byte(reply), 0)); err != nil {
			return
		}
	}
}

func (s *Server) handleControl(cmd string, from net.Addr) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, cmd)
	if r, ok := s.replies[cmd]; ok {
		return r
	}

	const ok = "dtrack2 ok"
	switch {
	case cmd == "dtrack2 tracking start":
		s.tracking = true
		return ok
	case cmd == "dtrack2 tracking stop":
		s.tracking = false
		return ok
	case cmd == "dtrack2 getmsg":
		if len(s.messages) == 0 {
			return ok
		}
		m := s.messages[0]
		s.messages = s.messages[1:]
		return m
	case strings.HasPrefix(cmd, "dtrack2 set output net ch"):
		return s.handleOutput(strings.Fields(cmd), from)
	case strings.HasPrefix(cmd, "dtrack2 set "):
		f := strings.Fields(strings.TrimPrefix(cmd, "dtrack2 set "))
		if len(f) < 3 {
			return `dtrack2 err 2 "missing value"`
		}
		s.params[f[0]+" "+f[1]] = strings.Join(f[2:], " ")
		return ok
	case strings.HasPrefix(cmd, "dtrack2 get "):
		name := strings.Join(strings.Fields(strings.TrimPrefix(cmd, "dtrack2 get ")), " ")
		v, found := s.params[name]
		if !found {
			return `dtrack2 err 7 "unknown parameter"`
		}
		return "dtrack2 set " + name + " " + v
	}
	return `dtrack2 err 1 "unknown command"`
}

// handleOutput processes "dtrack2 set output net chNN udp my_ip <port>" and "... none".
func (s *Server) handleOutput(f []string, from net.Addr) string {
	if len(f) < 6 {
		return `dtrack2 err 2 "missing value"`
	}
	switch f[5] {
	case "none":
		s.dest = nil
		return "dtrack2 ok"
	case "udp":
		if len(f) != 8 || f[6] != "my_ip" {
			return `dtrack2 err 3 "bad output"`
		}
		port, err := strconv.Atoi(f[7])
		if err != nil {
			return `dtrack2 err 3 "bad port"`
		}
		host := net.IPv4(127, 0, 0, 1)
		if tcp, ok := from.(*net.TCPAddr); ok {
			host = tcp.IP
		}
		s.dest = &net.UDPAddr{IP: host, Port: port}
		return "dtrack2 ok"
	}
	return `dtrack2 err 3 "bad output"`
}

// commandLoop answers the legacy UDP command set. The sender's address becomes the frame
// destination when none is configured.
func (s *Server) commandLoop() {
	defer s.wg.Done()
	buf := make([]byte, 512)
	for {
		n, from, err := s.cmdConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		cmd := string(bytes.TrimRight(buf[:n], "\x00"))

		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		switch cmd {
		case "dtrack 31":
			s.tracking = true
			if s.dest == nil {
				s.dest = from
			}
		case "dtrack 32":
			s.tracking = false
		}
		s.mu.Unlock()
	}
}

func (s *Server) frameLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Server) tick() {
	s.mu.Lock()
	if !s.tracking || s.dest == nil {
		s.mu.Unlock()
		return
	}
	s.frame++
	frame := s.frame
	dest := s.dest
	s.mu.Unlock()

	t := time.Since(s.start).Seconds()
	datagram := RenderFrame(frame, t, s.cfg.Bodies, s.cfg.FlyStickFormat)
	if _, err := s.dataConn.WriteToUDP([]byte(datagram), dest); err != nil {
		s.log.Debug("Frame send failed", "error", err)
	}
}
