package terminal

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/outpost/pkg/logging"
	"github.com/entrhq/outpost/pkg/terminal"
)

type stubDialer struct{}

func (stubDialer) Dial(ctx context.Context, creds terminal.Credentials) (terminal.Conn, error) {
	return &stubConn{files: map[string][]byte{}}, nil
}

type stubConn struct {
	mu       sync.Mutex
	commands []string
	files    map[string][]byte
}

func (c *stubConn) Run(ctx context.Context, command string, timeout time.Duration) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, command)
	return "ran: " + command, "", nil
}
func (c *stubConn) ReadFile(path string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", terminal.ErrFileNotFound, path)
	}
	return data, nil
}
func (c *stubConn) WriteFile(path string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = data
	return nil
}
func (c *stubConn) Close() error { return nil }

func connectedManager(t *testing.T) *terminal.Manager {
	t.Helper()
	m := terminal.NewManager(stubDialer{}, terminal.Config{DefaultDir: "/srv"}, nil, logging.NewNop())
	creds := terminal.Credentials{Host: "box.example", Username: "deploy", Password: "secret"}
	require.NoError(t, m.Initialize(context.Background(), "alice", creds))
	t.Cleanup(func() { _ = m.CloseAll() })
	return m
}

func TestExecuteTool(t *testing.T) {
	m := connectedManager(t)
	tool := NewExecuteTool(m)

	out, err := tool.Execute(context.Background(),
		[]byte(`<arguments><user>alice</user><command>ls -la</command></arguments>`))
	require.NoError(t, err)
	assert.Contains(t, out, "Command succeeded")
	assert.Contains(t, out, "cd '/srv' && ls -la")
}

func TestExecuteToolValidation(t *testing.T) {
	tool := NewExecuteTool(connectedManager(t))

	_, err := tool.Execute(context.Background(), []byte(`<arguments><command>ls</command></arguments>`))
	assert.Error(t, err, "missing user")

	_, err = tool.Execute(context.Background(), []byte(`<arguments><user>alice</user></arguments>`))
	assert.Error(t, err, "missing command")
}

func TestChangeDirTool(t *testing.T) {
	m := connectedManager(t)

	out, err := NewChangeDirTool(m).Execute(context.Background(),
		[]byte(`<arguments><user>alice</user><path>app</path></arguments>`))
	require.NoError(t, err)
	assert.Contains(t, out, "/srv/app")
}

func TestFileToolsRoundTrip(t *testing.T) {
	m := connectedManager(t)

	out, err := NewEditFileTool(m).Execute(context.Background(),
		[]byte(`<arguments><user>alice</user><path>notes.txt</path><content>hello</content></arguments>`))
	require.NoError(t, err)
	assert.Contains(t, out, "notes.txt")

	out, err = NewReadFileTool(m).Execute(context.Background(),
		[]byte(`<arguments><user>alice</user><path>notes.txt</path></arguments>`))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestStatusToolDisconnectedUser(t *testing.T) {
	m := terminal.NewManager(stubDialer{}, terminal.Config{}, nil, logging.NewNop())

	out, err := NewStatusTool(m).Execute(context.Background(),
		[]byte(`<arguments><user>ghost</user></arguments>`))
	require.NoError(t, err)
	assert.Contains(t, out, "No terminal session")
}

func TestCommandLogTool(t *testing.T) {
	m := connectedManager(t)
	_, err := m.Execute(context.Background(), "alice", "echo hi")
	require.NoError(t, err)

	out, err := NewCommandLogTool(m).Execute(context.Background(),
		[]byte(`<arguments><user>alice</user></arguments>`))
	require.NoError(t, err)
	assert.Contains(t, out, "echo hi")
	assert.Contains(t, out, "(ok)")
}

func TestLaunchDevServerTool(t *testing.T) {
	m := connectedManager(t)

	out, err := NewLaunchDevServerTool(m).Execute(context.Background(),
		[]byte(`<arguments><user>alice</user><command>npm run dev</command></arguments>`))
	require.NoError(t, err)
	assert.Contains(t, out, devServerLog)

	entries := m.CommandLog("alice")
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Command, "nohup npm run dev")
	assert.Contains(t, entries[0].Command, "2>&1 &")
	// Stays POSIX sh: no bash builtins in the launch line.
	assert.NotContains(t, entries[0].Command, "disown")
}

func TestCheckDevServerTool(t *testing.T) {
	m := connectedManager(t)

	// The stub echoes the command back as stdout, so pgrep "matches".
	out, err := NewCheckDevServerTool(m).Execute(context.Background(),
		[]byte(`<arguments><user>alice</user><pattern>npm run dev</pattern></arguments>`))
	require.NoError(t, err)
	assert.Equal(t, "Dev server is running", out)
}

func TestReadLogFileToolMissingLog(t *testing.T) {
	m := connectedManager(t)

	out, err := NewReadLogFileTool(m).Execute(context.Background(),
		[]byte(`<arguments><user>alice</user></arguments>`))
	require.NoError(t, err, "a missing log is an answer, not a failure")
	assert.Contains(t, out, "does not exist yet")
}
