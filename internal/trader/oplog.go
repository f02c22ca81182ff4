package trader

import (
	"fmt"
	"sync"
	"time"
)

// opLog is the bounded, append-only operational log surfaced to callers.
// Lines narrate every decision, skip, and failure in plain text.
type opLog struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newOpLog(max int) *opLog {
	if max <= 0 {
		max = 200
	}
	return &opLog{lines: make([]string, 0, max), max: max}
}

func (l *opLog) appendf(format string, args ...interface{}) {
	line := time.Now().UTC().Format(time.RFC3339) + " " + fmt.Sprintf(format, args...)
	l.mu.Lock()
	if len(l.lines) >= l.max {
		l.lines = l.lines[1:]
	}
	l.lines = append(l.lines, line)
	l.mu.Unlock()
}

func (l *opLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}
