package dtrack

import (
	"fmt"
	"strings"

	"monolithgo/pkg/protocol"
)

// ReplyKind classifies a control channel answer.
type ReplyKind int

const (
	ReplyOK      ReplyKind = iota + 1 // "dtrack2 ok"
	ReplyError                        // "dtrack2 err <code> "<text>""
	ReplySet                          // "dtrack2 set <parameter> <value>"
	ReplyMessage                      // "dtrack2 msg ..."
)

const (
	replyOK   = "dtrack2 ok"
	prefixErr = "dtrack2 err "
	prefixSet = "dtrack2 set "
	prefixMsg = "dtrack2 msg "
)

// Reply is one decoded control channel answer.
type Reply struct {
	Kind ReplyKind
	Raw  string
	Err  *ServerError // set for ReplyError
}

// ParseReply classifies a reply string. Anything that is not one of the known shapes is a
// parse error.
func ParseReply(s string) (Reply, error) {
	switch {
	case s == replyOK:
		return Reply{Kind: ReplyOK, Raw: s}, nil
	case strings.HasPrefix(s, prefixErr):
		code, rest, err := protocol.Int(s[len(prefixErr):])
		if err != nil {
			return Reply{}, fmt.Errorf("error reply code: %w", err)
		}
		text, _, err := protocol.Quoted(rest)
		if err != nil {
			return Reply{}, fmt.Errorf("error reply text: %w", err)
		}
		return Reply{Kind: ReplyError, Raw: s, Err: &ServerError{Code: code, Description: text}}, nil
	case strings.HasPrefix(s, prefixSet):
		return Reply{Kind: ReplySet, Raw: s}, nil
	case strings.HasPrefix(s, prefixMsg):
		return Reply{Kind: ReplyMessage, Raw: s}, nil
	}
	return Reply{}, fmt.Errorf("%w: unexpected reply %q", ErrParse, s)
}

// Message is the latest status message polled from the controller.
type Message struct {
	Origin  string `json:"origin"`
	Status  string `json:"status"`
	FrameNr uint32 `json:"frame"`
	ErrorID uint32 `json:"error_id"`
	Text    string `json:"message"`
}

// parseMessage decodes the body of a "dtrack2 msg" reply.
func parseMessage(raw string) (Message, error) {
	var m Message
	var err error
	s := strings.TrimPrefix(raw, prefixMsg)

	if m.Origin, s, err = protocol.Word(s); err != nil {
		return Message{}, fmt.Errorf("message origin: %w", err)
	}
	if m.Status, s, err = protocol.Word(s); err != nil {
		return Message{}, fmt.Errorf("message status: %w", err)
	}
	if m.FrameNr, s, err = protocol.Uint(s); err != nil {
		return Message{}, fmt.Errorf("message frame: %w", err)
	}
	if m.ErrorID, s, err = protocol.Uint(s); err != nil {
		return Message{}, fmt.Errorf("message error id: %w", err)
	}
	if m.Text, _, err = protocol.Quoted(s); err != nil {
		return Message{}, fmt.Errorf("message text: %w", err)
	}
	return m, nil
}
