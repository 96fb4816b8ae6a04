package process

// Notes:
// - Real kill behavior is exercised by the browser integration tests; unit
//   tests cannot safely signal live process groups.

import (
	"errors"
	"testing"
)

func TestKillGroup_RejectsOwnGroup(t *testing.T) {
	t.Parallel()

	for _, pid := range []int{-5, 0, 1} {
		if err := KillGroup(pid); !errors.Is(err, ErrInvalidPID) {
			t.Errorf("KillGroup(%d) = %v, want ErrInvalidPID", pid, err)
		}
	}
}

func TestKillGroup_GoneProcess(t *testing.T) {
	t.Parallel()

	if err := KillGroup(999999999); err != nil {
		t.Errorf("KillGroup(nonexistent) = %v, want nil", err)
	}
}
