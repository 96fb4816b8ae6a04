//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

// killGroup kills a process tree using taskkill.
// /F = force kill, /T = terminate child processes (tree kill).
func killGroup(pid int) error {
	// taskkill exits non-zero when the tree is already gone.
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
	return nil
}
