// Package tracker runs the update loop that pulls frames from a tracking session and publishes
// the latest head and wand poses for concurrent readers.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"monolithgo/pkg/dtrack"
	"monolithgo/pkg/logging"
	"monolithgo/pkg/pose"
	"monolithgo/pkg/stats"
)

// ErrAlreadyRunning is returned by Start while the loop is active.
var ErrAlreadyRunning = errors.New("tracker: already running")

// FrameSource delivers decoded frames. *dtrack.Session satisfies it.
type FrameSource interface {
	Receive() bool
	LastDataError() error
	FrameCounter() uint32
	Timestamp() float64
	Body(id int) (dtrack.Body, bool)
	FlyStick(id int) (dtrack.FlyStick, bool)
}

// Config selects the entities that drive head and wand.
type Config struct {
	HeadBody      int
	WandFlyStick  int
	WandSmoothing int
}

// Snapshot is a consistent copy of the latest published state.
type Snapshot struct {
	Frame     uint32
	Timestamp float64
	Received  time.Time
	Updates   uint64
	Head      pose.Head
	Wand      pose.Wand
}

// Updater owns the receive loop. Head and wand are converted outside the lock and published
// together with the frame counter.
type Updater struct {
	src   FrameSource
	cfg   Config
	stats *stats.Stats
	log   *slog.Logger

	mu   sync.RWMutex
	snap Snapshot

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// loop-owned
	head pose.Head
	wand pose.Wand
}

// New creates an idle updater. st may be nil.
func New(src FrameSource, cfg Config, st *stats.Stats) *Updater {
	if st == nil {
		st = stats.New()
	}
	u := &Updater{
		src:   src,
		cfg:   cfg,
		stats: st,
		log:   slog.Default().With("component", "tracker"),
		head:  pose.NewHead(),
		wand:  pose.NewWand(cfg.WandSmoothing),
	}
	u.snap = Snapshot{Head: u.head, Wand: u.wand.Settled()}
	return u
}

// Start launches the loop. It runs until ctx is cancelled or Stop is called.
func (u *Updater) Start(ctx context.Context) error {
	u.runMu.Lock()
	defer u.runMu.Unlock()
	if u.done != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	u.cancel = cancel
	u.done = make(chan struct{})
	go u.loop(ctx, u.done)
	u.log.Info("Update loop started", "head_body", u.cfg.HeadBody, "wand_flystick", u.cfg.WandFlyStick)
	return nil
}

// Stop cancels the loop and blocks until it has exited. Calling it on an idle updater is a no-op.
func (u *Updater) Stop() {
	u.runMu.Lock()
	defer u.runMu.Unlock()
	if u.done == nil {
		return
	}
	u.cancel()
	<-u.done
	u.done = nil
	u.cancel = nil
	u.log.Info("Update loop stopped")
}

// Running reports whether the loop is active.
func (u *Updater) Running() bool {
	u.runMu.Lock()
	defer u.runMu.Unlock()
	if u.done == nil {
		return false
	}
	select {
	case <-u.done:
		return false
	default:
		return true
	}
}

// Snapshot returns the latest published state.
func (u *Updater) Snapshot() Snapshot {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.snap
}

// Stats returns the counters the loop feeds.
func (u *Updater) Stats() *stats.Stats { return u.stats }

func (u *Updater) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}
		if !u.src.Receive() {
			u.countFailure(u.src.LastDataError())
			continue
		}
		u.stats.TrackSuccess(stats.ChannelData)
		u.step()
	}
}

// step converts the committed frame and publishes it.
func (u *Updater) step() {
	wasHead, wasWand := u.head.IsTracked(), u.wand.IsTracked()

	u.head.Update(bodyReading(u.src.Body(u.cfg.HeadBody)))
	r, buttons, joystick := flyStickInput(u.src.FlyStick(u.cfg.WandFlyStick))
	u.wand.Update(r, buttons, joystick)

	frame := u.src.FrameCounter()
	next := Snapshot{
		Frame:     frame,
		Timestamp: u.src.Timestamp(),
		Received:  time.Now(),
		Head:      u.head,
		Wand:      u.wand.Settled(),
	}

	u.mu.Lock()
	next.Updates = u.snap.Updates + 1
	u.snap = next
	u.mu.Unlock()

	logging.Trace(u.log, "Frame published", "frame", frame, "head", u.head.IsTracked(), "wand", u.wand.IsTracked())
	u.transition("head", wasHead, u.head.IsTracked(), frame)
	u.transition("wand", wasWand, u.wand.IsTracked(), frame)
}

func (u *Updater) transition(what string, was, is bool, frame uint32) {
	if was == is {
		return
	}
	state := "lost"
	if is {
		state = "tracked"
	}
	u.log.Info("Tracking state changed", "entity", what, "state", state, "frame", frame)
	logging.LogEvent("tracking", what+" "+state)
}

func (u *Updater) countFailure(err error) {
	switch {
	case errors.Is(err, dtrack.ErrTimeout):
		u.stats.TrackTimeout(stats.ChannelData)
		logging.Trace(u.log, "No frame", "error", err)
	case errors.Is(err, dtrack.ErrParse):
		u.stats.TrackParseError(stats.ChannelData)
		u.log.Debug("Dropped malformed frame", "error", err)
	default:
		u.stats.TrackNetworkError(stats.ChannelData)
		u.log.Warn("Data receive failed", "error", err)
	}
}
