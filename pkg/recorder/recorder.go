// Package recorder samples the published pose on an interval and stores it in recording sessions.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"monolithgo/pkg/logging"
	"monolithgo/pkg/store"
	"monolithgo/pkg/tracker"
)

// flushEvery is the number of buffered samples written per transaction.
const flushEvery = 32

var (
	ErrRecording    = errors.New("recorder: already recording")
	ErrNotRecording = errors.New("recorder: not recording")
)

// SnapshotSource provides the latest tracker state. *tracker.Updater satisfies it.
type SnapshotSource interface {
	Snapshot() tracker.Snapshot
}

// Config describes what a new session is tagged with and how often it samples.
type Config struct {
	Interval     time.Duration
	RemoteSystem string
	DataPort     int
}

// Recorder writes a row whenever the tracker has published since the previous tick.
type Recorder struct {
	src   SnapshotSource
	store store.RecordingStore
	cfg   Config
	log   *slog.Logger

	mu       sync.Mutex
	session  *store.Session
	cancel   context.CancelFunc
	done     chan struct{}
	pending  []store.Sample
	lastSeen uint64
	written  int
}

// New creates an idle recorder.
func New(src SnapshotSource, st store.RecordingStore, cfg Config) *Recorder {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	return &Recorder{
		src:   src,
		store: st,
		cfg:   cfg,
		log:   slog.Default().With("component", "recorder"),
	}
}

// Start opens a new session and begins sampling. It returns the session id.
func (r *Recorder) Start(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return "", ErrRecording
	}

	sess := &store.Session{
		ID:           uuid.NewString(),
		RemoteSystem: r.cfg.RemoteSystem,
		DataPort:     r.cfg.DataPort,
		StartedAt:    time.Now(),
	}
	if err := r.store.CreateSession(ctx, sess); err != nil {
		return "", err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	r.session = sess
	r.cancel = cancel
	r.done = make(chan struct{})
	r.pending = r.pending[:0]
	r.lastSeen = r.src.Snapshot().Updates
	r.written = 0
	go r.loop(loopCtx, r.done)

	r.log.Info("Recording started", "session", sess.ID, "interval", r.cfg.Interval)
	logging.LogEvent("recording", "started "+sess.ID)
	return sess.ID, nil
}

// Stop ends the current session after flushing buffered samples.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.session == nil {
		r.mu.Unlock()
		return ErrNotRecording
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	flushErr := r.flushLocked(ctx)
	endErr := r.store.EndSession(ctx, r.session.ID, time.Now())

	r.log.Info("Recording stopped", "session", r.session.ID, "samples", r.written)
	logging.LogEvent("recording", "stopped "+r.session.ID)
	r.session = nil
	r.cancel = nil
	r.done = nil
	return errors.Join(flushErr, endErr)
}

// Active returns the id of the running session.
func (r *Recorder) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return "", false
	}
	return r.session.ID, true
}

// SaveMessage stores a controller message, attached to the running session if there is one.
func (r *Recorder) SaveMessage(ctx context.Context, m *store.MessageRecord) error {
	if id, ok := r.Active(); ok {
		m.SessionID = id
	}
	return r.store.SaveMessage(ctx, m)
}

func (r *Recorder) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sample(ctx)
		}
	}
}

func (r *Recorder) sample(ctx context.Context) {
	snap := r.src.Snapshot()

	r.mu.Lock()
	defer r.mu.Unlock()
	if snap.Updates == r.lastSeen {
		return
	}
	r.lastSeen = snap.Updates
	r.pending = append(r.pending, sampleFrom(snap))

	if len(r.pending) >= flushEvery {
		if err := r.flushLocked(ctx); err != nil {
			r.log.Error("Failed to write samples", "session", r.session.ID, "error", err)
		}
	}
}

func (r *Recorder) flushLocked(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.store.AppendSamples(ctx, r.session.ID, r.pending); err != nil {
		return err
	}
	r.written += len(r.pending)
	r.pending = r.pending[:0]
	return nil
}

func sampleFrom(s tracker.Snapshot) store.Sample {
	h, w := s.Head, s.Wand
	return store.Sample{
		Frame:       s.Frame,
		RecordedAt:  s.Received,
		HeadTracked: h.IsTracked(),
		Head:        [3]float64{h.Position().X, h.Position().Y, h.Position().Z},
		HeadView:    [3]float64{h.View().X, h.View().Y, h.View().Z},
		WandTracked: w.IsTracked(),
		Wand:        [3]float64{w.Position().X, w.Position().Y, w.Position().Z},
		WandView:    [3]float64{w.View().X, w.View().Y, w.View().Z},
		Buttons:     w.ButtonMask(),
		Joystick:    w.Joystick,
	}
}
