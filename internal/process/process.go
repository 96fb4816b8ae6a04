// Package process terminates a browser together with its helper processes.
//
// Chrome forks renderer, GPU and zygote children. Closing the DevTools
// connection does not always reap them, so engines kill the whole group as a
// last step of teardown.
package process

import (
	"errors"
	"fmt"
)

// ErrInvalidPID rejects PIDs that would address the caller's own group.
var ErrInvalidPID = errors.New("invalid pid")

// KillGroup kills pid and its children. A group that is already gone is not
// an error.
func KillGroup(pid int) error {
	if pid <= 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	return killGroup(pid)
}
