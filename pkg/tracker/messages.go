package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"monolithgo/pkg/dtrack"
	"monolithgo/pkg/logging"
	"monolithgo/pkg/stats"
	"monolithgo/pkg/store"
)

// recentMessages bounds the in-memory message history.
const recentMessages = 50

// MessageSource polls controller status messages. *dtrack.Session satisfies it.
type MessageSource interface {
	GetMessage() (dtrack.Message, error)
}

// MessageSink persists polled messages.
type MessageSink interface {
	SaveMessage(ctx context.Context, m *store.MessageRecord) error
}

// MessagePoller drains the controller's message queue on an interval.
type MessagePoller struct {
	src      MessageSource
	sink     MessageSink
	stats    *stats.Stats
	interval time.Duration
	log      *slog.Logger

	mu     sync.RWMutex
	recent []store.MessageRecord

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMessagePoller creates a poller. sink and st may be nil.
func NewMessagePoller(src MessageSource, interval time.Duration, sink MessageSink, st *stats.Stats) *MessagePoller {
	if st == nil {
		st = stats.New()
	}
	return &MessagePoller{
		src:      src,
		sink:     sink,
		stats:    st,
		interval: interval,
		log:      slog.Default().With("component", "messages"),
	}
}

// Start runs the poll loop in the background until ctx is cancelled, Stop is called or the
// control channel goes away.
func (p *MessagePoller) Start(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.done != nil {
		select {
		case <-p.done:
		default:
			return ErrAlreadyRunning
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	p.log.Info("Message polling started", "interval", p.interval)
	return nil
}

// Stop cancels the loop and blocks until no poll is in flight. The source may be closed once
// it returns.
func (p *MessagePoller) Stop() {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.done == nil {
		return
	}
	p.cancel()
	<-p.done
	p.done = nil
	p.cancel = nil
}

// Run polls until ctx is done or the control channel goes away.
func (p *MessagePoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Poll(ctx); errors.Is(err, dtrack.ErrControlUnavailable) || errors.Is(err, dtrack.ErrNotSupported) {
				p.log.Info("Message polling stopped", "reason", err)
				return
			}
		}
	}
}

// Poll drains every queued message. It returns nil once the controller reports an empty queue.
func (p *MessagePoller) Poll(ctx context.Context) error {
	for ctx.Err() == nil {
		msg, err := p.src.GetMessage()
		if errors.Is(err, dtrack.ErrNoMessage) {
			p.stats.TrackSuccess(stats.ChannelControl)
			return nil
		}
		if err != nil {
			p.countFailure(err)
			return err
		}
		p.stats.TrackSuccess(stats.ChannelControl)
		p.record(ctx, msg)
	}
	return ctx.Err()
}

func (p *MessagePoller) record(ctx context.Context, msg dtrack.Message) {
	rec := store.MessageRecord{
		Origin:     msg.Origin,
		Status:     msg.Status,
		Frame:      msg.FrameNr,
		ErrorID:    msg.ErrorID,
		Text:       msg.Text,
		ReceivedAt: time.Now(),
	}
	logging.LogEvent("message", fmt.Sprintf("%s %s frame=%d id=0x%x %q", msg.Origin, msg.Status, msg.FrameNr, msg.ErrorID, msg.Text))

	if p.sink != nil {
		if err := p.sink.SaveMessage(ctx, &rec); err != nil {
			p.log.Warn("Failed to store controller message", "error", err)
		}
	}

	p.mu.Lock()
	p.recent = append(p.recent, rec)
	if len(p.recent) > recentMessages {
		p.recent = append(p.recent[:0], p.recent[len(p.recent)-recentMessages:]...)
	}
	p.mu.Unlock()
}

// Recent returns the latest messages, newest first.
func (p *MessagePoller) Recent() []store.MessageRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]store.MessageRecord, len(p.recent))
	for i, m := range p.recent {
		out[len(p.recent)-1-i] = m
	}
	return out
}

func (p *MessagePoller) countFailure(err error) {
	var se *dtrack.ServerError
	switch {
	case errors.Is(err, dtrack.ErrTimeout):
		p.stats.TrackTimeout(stats.ChannelControl)
	case errors.Is(err, dtrack.ErrParse):
		p.stats.TrackParseError(stats.ChannelControl)
	case errors.Is(err, dtrack.ErrProtocol):
		p.stats.TrackProtocolError(stats.ChannelControl)
	case errors.As(err, &se):
		p.stats.TrackServerError(stats.ChannelControl)
	default:
		p.stats.TrackNetworkError(stats.ChannelControl)
	}
	p.log.Warn("Message poll failed", "error", err)
}
