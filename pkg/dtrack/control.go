package dtrack

import (
	"errors"
	"fmt"
	"strings"

	"monolithgo/pkg/logging"
	"monolithgo/pkg/protocol"
	"monolithgo/pkg/transport"
)

// Legacy controller command codes.
const (
	cmdLegacyEnable  = "dtrack 10 3"
	cmdLegacyStart   = "dtrack 31"
	cmdLegacyStop    = "dtrack 32"
	cmdLegacyDisable = "dtrack 10 0"
)

// StartMeasurement starts tracking. For a DTrack2 controller a channel between 1 and
// MaxOutputChannel first routes that output channel to this session's data port; 0 (or an
// out of range value) leaves the output configuration alone.
func (s *Session) StartMeasurement(channel uint) error {
	switch s.remote {
	case RemoteDTrack:
		if err := s.SendCommand(cmdLegacyEnable); err != nil {
			return err
		}
		if err := s.SendCommand(cmdLegacyStart); err != nil {
			return err
		}
		s.setStreaming(true)
		return nil
	case RemoteDTrack2:
		s.ctrlMu.Lock()
		defer s.ctrlMu.Unlock()
		return s.startV2(channel)
	default:
		return fmt.Errorf("start measurement: %w", ErrNotSupported)
	}
}

// StopMeasurement stops tracking and releases the output channel claimed by StartMeasurement.
func (s *Session) StopMeasurement() error {
	switch s.remote {
	case RemoteDTrack:
		if err := s.SendCommand(cmdLegacyStop); err != nil {
			return err
		}
		if err := s.SendCommand(cmdLegacyDisable); err != nil {
			return err
		}
		s.setStreaming(false)
		return nil
	case RemoteDTrack2:
		s.ctrlMu.Lock()
		defer s.ctrlMu.Unlock()
		return s.stopV2()
	default:
		return fmt.Errorf("stop measurement: %w", ErrNotSupported)
	}
}

func (s *Session) setStreaming(v bool) {
	s.ctrlMu.Lock()
	s.streaming = v
	s.ctrlMu.Unlock()
}

// startV2 requires ctrlMu.
func (s *Session) startV2(channel uint) error {
	if s.channel == 0 && channel >= 1 && channel <= MaxOutputChannel {
		cmd := fmt.Sprintf("dtrack2 set output net ch%02d udp my_ip %d", channel, s.udp.Port())
		if err := s.expectOK(cmd); err != nil {
			return fmt.Errorf("failed to route output channel %d: %w", channel, err)
		}
		s.channel = channel
	}
	if err := s.expectOK("dtrack2 tracking start"); err != nil {
		return fmt.Errorf("failed to start tracking: %w", err)
	}
	s.streaming = true
	logging.LogEvent("tracking", fmt.Sprintf("measurement started (channel %d, port %d)", s.channel, s.udp.Port()))
	return nil
}

// stopV2 requires ctrlMu.
func (s *Session) stopV2() error {
	if s.channel != 0 {
		cmd := fmt.Sprintf("dtrack2 set output net ch%02d none", s.channel)
		s.channel = 0
		if err := s.expectOK(cmd); err != nil {
			return fmt.Errorf("failed to release output channel: %w", err)
		}
	}
	if err := s.expectOK("dtrack2 tracking stop"); err != nil {
		return fmt.Errorf("failed to stop tracking: %w", err)
	}
	s.streaming = false
	logging.LogEvent("tracking", "measurement stopped")
	return nil
}

// expectOK sends cmd and accepts only "dtrack2 ok". Requires ctrlMu.
func (s *Session) expectOK(cmd string) error {
	reply, err := s.exchange(cmd)
	if err != nil {
		return err
	}
	if reply.Kind != ReplyOK {
		err := fmt.Errorf("%w: expected ok, got %q", ErrParse, reply.Raw)
		s.lastControlErr = err
		s.log.Error("Unexpected control reply", "command", cmd, "reply", reply.Raw)
		return err
	}
	return nil
}

// SendCommand sends a command to the controller's UDP command port.
//
// For DTrack2 controllers the legacy start and stop codes are translated into the equivalent
// control channel requests.
func (s *Session) SendCommand(cmd string) error {
	if s.remote == RemoteDTrack2 {
		if code, ok := strings.CutPrefix(cmd, "dtrack "); ok {
			switch {
			case strings.HasPrefix(code, "10 1"), strings.HasPrefix(code, "10 3"), strings.HasPrefix(code, "31"):
				return s.StartMeasurement(0)
			case strings.HasPrefix(code, "10 0"), strings.HasPrefix(code, "32"):
				return s.StopMeasurement()
			}
		}
	}

	if len(cmd) > MaxCommandLen {
		return fmt.Errorf("%w: %d bytes", ErrCommandTooLong, len(cmd))
	}
	if s.remoteIP == nil || s.remotePort == 0 {
		return fmt.Errorf("send command: no controller address: %w", ErrNotSupported)
	}

	payload := append([]byte(cmd), 0)
	if err := s.udp.Send(payload, s.remoteIP, s.remotePort, s.cfg.DataTimeout); err != nil {
		err = fmt.Errorf("%w: %w", ErrNetwork, err)
		s.setDataErr(err)
		return err
	}
	s.setDataErr(nil)
	return nil
}

// SendCommandReceive sends cmd over the control connection and returns the classified reply.
// A "dtrack2 err" reply is returned together with its *ServerError.
func (s *Session) SendCommandReceive(cmd string) (Reply, error) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	return s.exchange(cmd)
}

// exchange performs one request/reply round trip. Requires ctrlMu.
func (s *Session) exchange(cmd string) (Reply, error) {
	s.lastServerErr = nil
	reply, err := s.roundTrip(cmd)
	s.lastControlErr = err
	if err != nil {
		return reply, err
	}
	if reply.Kind == ReplyError {
		s.lastServerErr = reply.Err
		s.lastControlErr = reply.Err
		return reply, reply.Err
	}
	return reply, nil
}

func (s *Session) roundTrip(cmd string) (Reply, error) {
	if s.remote != RemoteDTrack2 {
		return Reply{}, fmt.Errorf("control command: %w", ErrNotSupported)
	}
	if len(cmd) > MaxCommandLen {
		return Reply{}, fmt.Errorf("%w: %d bytes", ErrCommandTooLong, len(cmd))
	}
	if s.tcp == nil {
		return Reply{}, ErrControlUnavailable
	}

	if err := s.tcp.Send(append([]byte(cmd), 0), s.cfg.ControlTimeout); err != nil {
		s.dropControl(err)
		return Reply{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	n, err := s.tcp.Receive(s.ctrlBuf, s.cfg.ControlTimeout)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			return Reply{}, fmt.Errorf("%w: no reply to %q within %v", ErrTimeout, cmd, s.cfg.ControlTimeout)
		}
		s.dropControl(err)
		return Reply{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	raw := strings.TrimRight(string(s.ctrlBuf[:n]), "\x00")
	reply, err := ParseReply(raw)
	if err != nil {
		s.log.Error("Unparseable control reply", "command", cmd, "reply", raw, "error", err)
		return Reply{}, err
	}
	return reply, nil
}

// dropControl tears down the control connection for good. Requires ctrlMu.
func (s *Session) dropControl(cause error) {
	if s.tcp == nil {
		return
	}
	_ = s.tcp.Close()
	s.tcp = nil
	s.streaming = false
	s.log.Warn("Control connection lost, continuing in data-only mode", "error", cause)
	logging.LogEvent("control", "connection lost: "+cause.Error())
}

// SetParam sets "<category> <name>" to value.
func (s *Session) SetParam(category, name, value string) error {
	return s.SetParameter(category + " " + name + " " + value)
}

// SetParameter sends "dtrack2 set <parameter>". The controller either acknowledges with
// "dtrack2 ok" or echoes the command verbatim; any other echo is a protocol violation.
func (s *Session) SetParameter(parameter string) error {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	cmd := "dtrack2 set " + parameter
	reply, err := s.exchange(cmd)
	if err != nil {
		return err
	}
	switch {
	case reply.Kind == ReplyOK:
		return nil
	case reply.Kind == ReplySet && reply.Raw == cmd:
		return nil
	}
	err = fmt.Errorf("%w: set %q answered with %q", ErrProtocol, parameter, reply.Raw)
	s.lastControlErr = err
	return err
}

// GetParam reads "<category> <name>".
func (s *Session) GetParam(category, name string) (string, error) {
	return s.GetParameter(category + " " + name)
}

// GetParameter sends "dtrack2 get <parameter>" and returns the value from the
// "dtrack2 set <parameter> <value>" reply.
func (s *Session) GetParameter(parameter string) (string, error) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	reply, err := s.exchange("dtrack2 get " + parameter)
	if err != nil {
		return "", err
	}
	if reply.Kind != ReplySet {
		err := fmt.Errorf("%w: get %q answered with %q", ErrProtocol, parameter, reply.Raw)
		s.lastControlErr = err
		return "", err
	}
	value, ok := protocol.MatchParameter(reply.Raw[len(prefixSet):], parameter)
	if !ok {
		err := fmt.Errorf("%w: get %q answered for another parameter: %q", ErrProtocol, parameter, reply.Raw)
		s.lastControlErr = err
		return "", err
	}
	return value, nil
}

// GetMessage polls the controller's next status message. The fields of the latest message
// replace the previous ones and are also available from LastMessage.
func (s *Session) GetMessage() (Message, error) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	reply, err := s.exchange("dtrack2 getmsg")
	if err != nil {
		return Message{}, err
	}
	if reply.Kind == ReplyOK {
		return Message{}, ErrNoMessage
	}
	if reply.Kind != ReplyMessage {
		err := fmt.Errorf("%w: getmsg answered with %q", ErrProtocol, reply.Raw)
		s.lastControlErr = err
		return Message{}, err
	}
	msg, err := parseMessage(reply.Raw)
	if err != nil {
		s.lastControlErr = err
		return Message{}, err
	}
	s.message = msg
	return msg, nil
}

// LastMessage returns the most recently polled message.
func (s *Session) LastMessage() Message {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	return s.message
}
