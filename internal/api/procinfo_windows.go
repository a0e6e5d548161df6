package api

import "golang.org/x/sys/windows"

// processCPU returns the kernel plus user CPU time of this process in nanoseconds.
func processCPU() (int64, error) {
	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(windows.CurrentProcess(), &creation, &exit, &kernel, &user); err != nil {
		return 0, err
	}
	return filetimeNS(kernel) + filetimeNS(user), nil
}

// filetimeNS converts a FILETIME duration (100ns intervals) to nanoseconds.
func filetimeNS(ft windows.Filetime) int64 {
	return (int64(ft.HighDateTime)<<32 | int64(ft.LowDateTime)) * 100
}
