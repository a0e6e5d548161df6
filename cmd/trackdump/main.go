// Command trackdump prints received tracking frames, one line per entity.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"monolithgo/pkg/dtrack"
)

var (
	host    = flag.String("host", "", "Controller address; empty listens only")
	port    = flag.Int("port", dtrack.DefaultServerPort, "Controller control port")
	data    = flag.Int("data-port", 5000, "Local UDP data port")
	remote  = flag.String("remote", "unknown", "Controller type: unknown, dtrack or dtrack2")
	channel = flag.Uint("channel", 1, "Output channel to route when starting measurement")
	start   = flag.Bool("start", false, "Start measurement before reading")
	frames  = flag.Int("frames", 0, "Stop after this many frames; 0 runs forever")
)

func main() {
	flag.Parse()

	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "trackdump: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer) error {
	rs, err := dtrack.ParseRemoteSystem(*remote)
	if err != nil {
		return err
	}
	cfg := dtrack.DefaultConfig()
	cfg.ServerHost = *host
	cfg.ServerPort = *port
	cfg.DataPort = *data
	cfg.RemoteSystem = rs

	sess, err := dtrack.New(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	if *start {
		if err := sess.StartMeasurement(*channel); err != nil {
			return fmt.Errorf("start measurement: %w", err)
		}
		defer func() { _ = sess.StopMeasurement() }()
	}

	fmt.Fprintf(w, "listening on data port %d (%s)\n", sess.DataPort(), sess.RemoteSystem())
	for n := 0; *frames == 0 || n < *frames; {
		if !sess.Receive() {
			fmt.Fprintf(w, "%s receive failed: %v\n", time.Now().Format("15:04:05.000"), sess.LastDataError())
			continue
		}
		n++
		dumpFrame(w, sess)
	}
	return nil
}

func dumpFrame(w io.Writer, s *dtrack.Session) {
	fmt.Fprintf(w, "frame %d ts %.3f\n", s.FrameCounter(), s.Timestamp())
	for i := 0; i < s.NumBodies(); i++ {
		b, _ := s.Body(i)
		if !b.IsTracked() {
			fmt.Fprintf(w, "  body %d not tracked\n", i)
			continue
		}
		fmt.Fprintf(w, "  body %d q=%.3f loc=%.1f\n", i, b.Quality, b.Loc)
	}
	for i := 0; i < s.NumFlySticks(); i++ {
		f, _ := s.FlyStick(i)
		fmt.Fprintf(w, "  flystick %d tracked=%t loc=%.1f buttons=%v joystick=%.2f\n",
			i, f.IsTracked(), f.Loc, f.Button[:f.NumButton], f.Joystick[:f.NumJoystick])
	}
	for i := 0; i < s.NumMarkers(); i++ {
		m, _ := s.Marker(i)
		fmt.Fprintf(w, "  marker %d q=%.3f loc=%.1f\n", m.ID, m.Quality, m.Loc)
	}
}
