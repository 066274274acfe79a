package gpio

import (
	"fmt"
	"sync"
)

// Fake is a test double that records every level written to it.
type Fake struct {
	// Name identifies the channel in Journal entries.
	Name string

	// History contains every level successfully written, in order.
	// Release appends Idle.
	History []Level

	// SetError, if set, will be returned by Set.
	SetError error

	// ReleaseError, if set, will be returned by Release.
	ReleaseError error

	// SetCalls and ReleaseCalls count invocations, including failed ones.
	SetCalls     int
	ReleaseCalls int

	// Closed tracks if Close was called.
	Closed bool

	// Journal, if set, receives one entry per successful write.
	Journal *Journal

	level Level
}

// NewFake creates a Fake resting at Idle.
func NewFake(name string) *Fake {
	return &Fake{Name: name, level: Idle}
}

// Set records level.
func (f *Fake) Set(level Level) error {
	f.SetCalls++
	if f.SetError != nil {
		return f.SetError
	}
	f.write(level)
	return nil
}

// Release records Idle.
func (f *Fake) Release() error {
	f.ReleaseCalls++
	if f.ReleaseError != nil {
		return f.ReleaseError
	}
	f.write(Idle)
	return nil
}

// Level returns the last level written.
func (f *Fake) Level() Level {
	return f.level
}

// Close marks the channel as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

// Energised reports whether the channel was ever driven High.
func (f *Fake) Energised() bool {
	for _, l := range f.History {
		if l == High {
			return true
		}
	}
	return false
}

// Reset clears recorded writes and injected errors.
func (f *Fake) Reset() {
	f.History = nil
	f.SetError = nil
	f.ReleaseError = nil
	f.SetCalls = 0
	f.ReleaseCalls = 0
	f.Closed = false
	f.level = Idle
}

func (f *Fake) write(level Level) {
	f.level = level
	f.History = append(f.History, level)
	if f.Journal != nil {
		f.Journal.add(fmt.Sprintf("%s=%s", f.Name, level))
	}
}

// Journal records writes across several fakes so tests can assert ordering.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// Entries returns a copy of the recorded writes.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

func (j *Journal) add(entry string) {
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}
