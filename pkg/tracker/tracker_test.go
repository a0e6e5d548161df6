package tracker

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monolithgo/pkg/dtrack"
	"monolithgo/pkg/pose"
	"monolithgo/pkg/stats"
)

const identity = "[1 0 0 0 1 0 0 0 1]"

// fakeSource feeds frames from a channel; a nil frame simulates a parse failure.
type fakeSource struct {
	frames chan *dtrack.Frame
	cur    *dtrack.Frame
	err    error
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan *dtrack.Frame, 8)}
}

func (f *fakeSource) Receive() bool {
	select {
	case fr := <-f.frames:
		if fr == nil {
			f.err = fmt.Errorf("%w: broken line", dtrack.ErrParse)
			return false
		}
		f.cur, f.err = fr, nil
		return true
	case <-time.After(5 * time.Millisecond):
		f.err = dtrack.ErrTimeout
		return false
	}
}

func (f *fakeSource) LastDataError() error { return f.err }
func (f *fakeSource) FrameCounter() uint32 { return f.cur.Counter }
func (f *fakeSource) Timestamp() float64   { return f.cur.Timestamp }

func (f *fakeSource) Body(id int) (dtrack.Body, bool) {
	if f.cur == nil || id >= len(f.cur.Bodies) {
		return dtrack.Body{}, false
	}
	return f.cur.Bodies[id], true
}

func (f *fakeSource) FlyStick(id int) (dtrack.FlyStick, bool) {
	if f.cur == nil || id >= len(f.cur.FlySticks) {
		return dtrack.FlyStick{}, false
	}
	return f.cur.FlySticks[id], true
}

func mustFrame(t *testing.T, data string) *dtrack.Frame {
	t.Helper()
	f, err := dtrack.ParseFrame(data, nil)
	require.NoError(t, err)
	return f
}

func startUpdater(t *testing.T, src FrameSource, cfg Config) *Updater {
	t.Helper()
	u := New(src, cfg, stats.New())
	require.NoError(t, u.Start(context.Background()))
	t.Cleanup(u.Stop)
	return u
}

func TestPublishesHeadAndWand(t *testing.T) {
	src := newFakeSource()
	u := startUpdater(t, src, Config{})

	src.frames <- mustFrame(t, "fr 10\r\nts 2.5\r\n"+
		"6d 1 [0 1.0][1000 0 0]"+identity+"\r\n"+
		"6df2 1 1 [0 1.0 2 2][0 0 1000]"+identity+"[3 0.5 -0.5]\r\n")

	require.Eventually(t, func() bool { return u.Snapshot().Frame == 10 }, 2*time.Second, 5*time.Millisecond)

	s := u.Snapshot()
	assert.Equal(t, 2.5, s.Timestamp)
	assert.Equal(t, uint64(1), s.Updates)
	assert.False(t, s.Received.IsZero())

	assert.True(t, s.Head.IsTracked())
	assert.InDelta(t, 1000*pose.MMToFeet, s.Head.Position().X, 1e-9)

	assert.True(t, s.Wand.IsTracked())
	assert.InDelta(t, -1000*pose.MMToFeet, s.Wand.Position().Z, 1e-9)
	assert.Equal(t, uint32(0b11), s.Wand.ButtonMask())
	assert.Equal(t, [2]float64{0.5, -0.5}, s.Wand.Joystick)

	assert.Equal(t, int64(1), u.Stats().Snapshot()[stats.ChannelData].Success)
}

func TestMissingEntitiesAreUntracked(t *testing.T) {
	src := newFakeSource()
	u := startUpdater(t, src, Config{HeadBody: 3, WandFlyStick: 2})

	src.frames <- mustFrame(t, "fr 4\r\n6d 1 [0 1.0][1000 0 0]"+identity+"\r\n")
	require.Eventually(t, func() bool { return u.Snapshot().Frame == 4 }, 2*time.Second, 5*time.Millisecond)

	s := u.Snapshot()
	assert.False(t, s.Head.IsTracked())
	assert.Equal(t, pose.NewHead().Position(), s.Head.Position())
	assert.False(t, s.Wand.IsTracked())
	assert.Zero(t, s.Wand.NumButtons)
}

func TestFailuresDoNotPublish(t *testing.T) {
	src := newFakeSource()
	u := startUpdater(t, src, Config{})

	src.frames <- nil
	require.Eventually(t, func() bool {
		c := u.Stats().Snapshot()[stats.ChannelData]
		return c.ParseErrors == 1 && c.Timeouts > 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.Zero(t, u.Snapshot().Updates)
}

func TestStartStop(t *testing.T) {
	u := New(newFakeSource(), Config{}, nil)
	assert.False(t, u.Running())
	u.Stop()

	require.NoError(t, u.Start(context.Background()))
	assert.True(t, u.Running())
	assert.ErrorIs(t, u.Start(context.Background()), ErrAlreadyRunning)

	u.Stop()
	assert.False(t, u.Running())
	u.Stop()

	require.NoError(t, u.Start(context.Background()), "restart after stop")
	u.Stop()
}

func TestContextCancelEndsLoop(t *testing.T) {
	u := New(newFakeSource(), Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, u.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !u.Running() }, 2*time.Second, 5*time.Millisecond)
	u.Stop()
}

func TestSmoothingApplied(t *testing.T) {
	src := newFakeSource()
	u := startUpdater(t, src, Config{WandSmoothing: 2})

	src.frames <- mustFrame(t, "fr 1\r\n6df2 1 1 [0 1.0 0 0][1000 0 0]"+identity+"[]\r\n")
	src.frames <- mustFrame(t, "fr 2\r\n6df2 1 1 [0 1.0 0 0][3000 0 0]"+identity+"[]\r\n")
	require.Eventually(t, func() bool { return u.Snapshot().Frame == 2 }, 2*time.Second, 5*time.Millisecond)

	assert.InDelta(t, 2000*pose.MMToFeet, u.Snapshot().Wand.Position().X, 1e-9)
}

func TestSnapshotNeverMixesFrames(t *testing.T) {
	src := newFakeSource()
	u := startUpdater(t, src, Config{})

	// Every frame encodes its counter in the head position (x) and in the view vector (z).
	const frames = 2000
	batch := make([]*dtrack.Frame, frames)
	for i := range batch {
		tag := i + 1
		batch[i] = mustFrame(t, fmt.Sprintf("fr %d\r\n6d 1 [0 1.0][%d 0 0][1 0 0 0 1 0 0 0 %d]\r\n", tag, tag*1000, tag))
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for _, f := range batch {
			select {
			case src.frames <- f:
			case <-stop:
				return
			}
		}
	}()

	type result struct {
		reads    int
		mismatch string
	}
	done := make(chan result, 1)
	go func() {
		var r result
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			s := u.Snapshot()
			r.reads++
			if s.Updates == 0 {
				continue
			}
			posTag := math.Round(s.Head.Position().X / (1000 * pose.MMToFeet))
			viewTag := s.Head.View().Z
			if posTag != float64(s.Frame) || math.Abs(viewTag-float64(s.Frame)) > 1e-9 {
				r.mismatch = fmt.Sprintf("frame %d: position tag %v, view tag %v", s.Frame, posTag, viewTag)
				break
			}
			if s.Frame == frames {
				break
			}
		}
		done <- r
	}()

	r := <-done
	assert.Empty(t, r.mismatch)
	assert.Equal(t, uint32(frames), u.Snapshot().Frame)
	assert.Greater(t, r.reads, frames)
}
