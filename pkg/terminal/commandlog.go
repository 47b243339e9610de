package terminal

import "time"

// LogEntry records one command execution.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Command string    `json:"command"`
	Success bool      `json:"success"`
	Stdout  string    `json:"stdout"`
	Stderr  string    `json:"stderr"`
}

// commandLog is a fixed-capacity ring buffer of LogEntry, insertion
// order preserved, oldest evicted first. Memory per session is bounded
// by the capacity regardless of how many commands run.
type commandLog struct {
	entries []LogEntry
	start   int // index of the oldest entry
	size    int
}

// DefaultLogCapacity is used when the configuration does not set one.
const DefaultLogCapacity = 100

func newCommandLog(capacity int) *commandLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &commandLog{entries: make([]LogEntry, capacity)}
}

// append records one entry, evicting the oldest when full.
func (l *commandLog) append(e LogEntry) {
	idx := (l.start + l.size) % len(l.entries)
	l.entries[idx] = e
	if l.size < len(l.entries) {
		l.size++
	} else {
		l.start = (l.start + 1) % len(l.entries)
	}
}

// snapshot returns the entries oldest-first.
func (l *commandLog) snapshot() []LogEntry {
	out := make([]LogEntry, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.entries[(l.start+i)%len(l.entries)]
	}
	return out
}
