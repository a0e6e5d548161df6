package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Link reports the state of a tracking session. *dtrack.Session satisfies it.
type Link interface {
	DataValid() bool
	ControlValid() bool
	DataPort() int
}

// DataSocket fails when the UDP data socket is not open. Nothing works without it.
func DataSocket(l Link) Probe {
	return Probe{
		Name:     "Data Socket",
		Critical: true,
		Check: func(context.Context) error {
			if !l.DataValid() {
				return errors.New("data socket is not open")
			}
			return nil
		},
	}
}

// ControlChannel warns when no control connection exists; the session then runs data-only.
func ControlChannel(l Link, wanted bool) Probe {
	return Probe{
		Name: "Control Channel",
		Check: func(context.Context) error {
			if wanted && !l.ControlValid() {
				return errors.New("no control connection, continuing data-only")
			}
			return nil
		},
	}
}

// WritableDir fails when dir cannot be created or written to.
func WritableDir(name, dir string, critical bool) Probe {
	return Probe{
		Name:     name,
		Critical: critical,
		Check: func(context.Context) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			f, err := os.CreateTemp(dir, ".probe-*")
			if err != nil {
				return fmt.Errorf("directory %s is not writable: %w", filepath.Clean(dir), err)
			}
			name := f.Name()
			f.Close()
			return os.Remove(name)
		},
	}
}
