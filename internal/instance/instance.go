// Package instance makes sure only one daemon drives the relays.
package instance

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// RunningError is returned when another copy of the executable is running.
type RunningError struct {
	Executable string
	Pid        int
}

func (e *RunningError) Error() string {
	return fmt.Sprintf("%s is already running (pid %d)", e.Executable, e.Pid)
}

// Lister lists running processes. ps.Processes satisfies it.
type Lister func() ([]ps.Process, error)

// Guard detects other processes with the same executable name.
//
// The process table only carries names, so every other greenhouse process
// counts, including a short-lived read or config command. Those finish in
// seconds; retry the daemon or close-up once they have exited.
type Guard struct {
	list Lister
	pid  int
	exe  string
}

// NewGuard creates a Guard for the current process.
func NewGuard() *Guard {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return &Guard{list: ps.Processes, pid: os.Getpid(), exe: filepath.Base(exe)}
}

// NewGuardFor creates a Guard for an arbitrary pid and executable name.
func NewGuardFor(list Lister, pid int, exe string) *Guard {
	return &Guard{list: list, pid: pid, exe: exe}
}

// Check returns *RunningError if another process runs the same executable.
func (g *Guard) Check() error {
	processList, err := g.list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}
	for _, process := range processList {
		if process.Pid() == g.pid {
			continue
		}
		if process.Executable() != g.exe {
			continue
		}
		return &RunningError{Executable: g.exe, Pid: process.Pid()}
	}
	return nil
}
