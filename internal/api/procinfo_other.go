//go:build !unix && !windows

package api

import "errors"

func processCPU() (int64, error) {
	return 0, errors.New("process CPU time not available on this platform")
}
