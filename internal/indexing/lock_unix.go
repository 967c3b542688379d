//go:build unix

package indexing

import "syscall"

// isProcessRunning checks if a process with given PID is running on Unix systems
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	// Signal 0 checks for existence without delivering anything
	err := syscall.Kill(pid, syscall.Signal(0))
	switch err {
	case nil:
		return true
	case syscall.EPERM:
		// Exists, but owned by someone else
		return true
	default:
		// ESRCH or anything unexpected
		return false
	}
}
