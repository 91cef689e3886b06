// Package platform resolves the host machine tag used as a recipe's
// default "arch" field and the default build parallelism.
package platform

import (
	"runtime"
)

// HostTag returns the machine architecture tag used as a recipe's default
// "arch" field when none is specified, following Go's GOARCH naming
// (e.g. "amd64", "arm64").
func HostTag() string {
	return runtime.GOARCH
}

// OS returns the host operating system ("linux", "darwin", ...).
func OS() string {
	return runtime.GOOS
}

// DefaultJobs returns the detected CPU count, or 1 if it cannot be
// determined, for use as the default "jobs" configuration value.
func DefaultJobs() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
