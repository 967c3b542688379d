//go:build windows

package indexing

import "syscall"

// isProcessRunning checks if a process with given PID is running on Windows
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	// FindProcess succeeds for any PID on Windows, so open a handle instead
	const da = syscall.STANDARD_RIGHTS_READ | syscall.PROCESS_QUERY_INFORMATION | syscall.SYNCHRONIZE

	h, err := syscall.OpenProcess(da, false, uint32(pid))
	if err != nil {
		return false
	}
	syscall.CloseHandle(h)
	return true
}
