//go:build unix

package api

import "golang.org/x/sys/unix"

// processCPU returns the kernel plus user CPU time of this process in nanoseconds.
func processCPU() (int64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, err
	}
	return ru.Utime.Nano() + ru.Stime.Nano(), nil
}
