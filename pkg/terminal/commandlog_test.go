package terminal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandLogEmpty(t *testing.T) {
	l := newCommandLog(4)
	assert.Empty(t, l.snapshot())
}

func TestCommandLogOrder(t *testing.T) {
	l := newCommandLog(4)
	for i := 0; i < 3; i++ {
		l.append(LogEntry{Command: fmt.Sprintf("cmd-%d", i)})
	}

	entries := l.snapshot()
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("cmd-%d", i), e.Command)
	}
}

func TestCommandLogEvictsOldest(t *testing.T) {
	l := newCommandLog(3)
	for i := 0; i < 10; i++ {
		l.append(LogEntry{Command: fmt.Sprintf("cmd-%d", i)})
	}

	entries := l.snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, "cmd-7", entries[0].Command)
	assert.Equal(t, "cmd-8", entries[1].Command)
	assert.Equal(t, "cmd-9", entries[2].Command)
}

func TestCommandLogCapacityFallback(t *testing.T) {
	l := newCommandLog(0)
	assert.Len(t, l.entries, DefaultLogCapacity)
}
