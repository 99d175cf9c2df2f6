package pipeline

import (
	"fmt"
	"sync"
)

// RunLog is the ordered, append-only line log for one batch run. It is the
// sole progress side-channel the UI observes; it is cleared at the start of
// each run and owned by the orchestrator while a run is active.
type RunLog struct {
	mu    sync.Mutex
	lines []string
}

// NewRunLog creates an empty run log
func NewRunLog() *RunLog {
	return &RunLog{}
}

// Append adds a formatted line to the log
func (l *RunLog) Append(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

// Reset clears the log for a new run
func (l *RunLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
}

// Snapshot returns a copy of the current lines in order
func (l *RunLog) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len returns the current number of lines
func (l *RunLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}
