// Package terminal exposes the terminal session manager's operations as
// agent tools. Every tool is scoped by a caller-supplied user id; the
// session itself must already be initialized through the service API.
package terminal

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/outpost/pkg/terminal"
	"github.com/entrhq/outpost/pkg/tools"
)

func userSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "User id owning the terminal session",
	}
}

// ExecuteTool runs a shell command in the session's working directory.
type ExecuteTool struct {
	manager *terminal.Manager
}

// NewExecuteTool creates an execute tool.
func NewExecuteTool(manager *terminal.Manager) *ExecuteTool {
	return &ExecuteTool{manager: manager}
}

func (t *ExecuteTool) Name() string {
	return "terminal_execute"
}

func (t *ExecuteTool) Description() string {
	return "Execute a shell command on the remote host in the session's current working directory. Returns stdout, stderr, and whether the command succeeded."
}

func (t *ExecuteTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user":    userSchema(),
			"command": map[string]interface{}{"type": "string", "description": "Shell command to execute"},
		},
		[]string{"user", "command"},
	)
}

func (t *ExecuteTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Command string   `xml:"command"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}
	if input.Command == "" {
		return "", fmt.Errorf("command is required")
	}

	result, err := t.manager.Execute(ctx, input.User, input.Command)
	if err != nil {
		return "", err
	}
	return formatResult(result), nil
}

func formatResult(result *terminal.ExecResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("Command succeeded\n")
	} else {
		b.WriteString("Command failed\n")
	}
	if result.Stdout != "" {
		fmt.Fprintf(&b, "stdout:\n%s\n", result.Stdout)
	}
	if result.Stderr != "" {
		fmt.Fprintf(&b, "stderr:\n%s\n", result.Stderr)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ChangeDirTool updates the session's virtual working directory.
type ChangeDirTool struct {
	manager *terminal.Manager
}

// NewChangeDirTool creates a change-directory tool.
func NewChangeDirTool(manager *terminal.Manager) *ChangeDirTool {
	return &ChangeDirTool{manager: manager}
}

func (t *ChangeDirTool) Name() string {
	return "terminal_cd"
}

func (t *ChangeDirTool) Description() string {
	return "Change the session's working directory. The path is tracked client-side; a nonexistent directory surfaces as a failure on the next command."
}

func (t *ChangeDirTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user": userSchema(),
			"path": map[string]interface{}{"type": "string", "description": "Target directory, absolute or relative"},
		},
		[]string{"user", "path"},
	)
}

func (t *ChangeDirTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Path    string   `xml:"path"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}

	cwd, err := t.manager.ChangeDirectory(input.User, input.Path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Working directory is now %s", cwd), nil
}

// ReadFileTool returns the contents of a remote file.
type ReadFileTool struct {
	manager *terminal.Manager
}

// NewReadFileTool creates a read-file tool.
func NewReadFileTool(manager *terminal.Manager) *ReadFileTool {
	return &ReadFileTool{manager: manager}
}

func (t *ReadFileTool) Name() string {
	return "terminal_read_file"
}

func (t *ReadFileTool) Description() string {
	return "Read a file from the remote host. Relative paths resolve against the session's working directory."
}

func (t *ReadFileTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user": userSchema(),
			"path": map[string]interface{}{"type": "string", "description": "File path to read"},
		},
		[]string{"user", "path"},
	)
}

func (t *ReadFileTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Path    string   `xml:"path"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}
	if input.Path == "" {
		return "", fmt.Errorf("path is required")
	}

	data, err := t.manager.ReadFile(ctx, input.User, input.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EditFileTool replaces the contents of a remote file.
type EditFileTool struct {
	manager *terminal.Manager
}

// NewEditFileTool creates an edit-file tool.
func NewEditFileTool(manager *terminal.Manager) *EditFileTool {
	return &EditFileTool{manager: manager}
}

func (t *EditFileTool) Name() string {
	return "terminal_edit_file"
}

func (t *EditFileTool) Description() string {
	return "Write content to a file on the remote host, replacing its contents. The file is created if it does not exist."
}

func (t *EditFileTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user":    userSchema(),
			"path":    map[string]interface{}{"type": "string", "description": "File path to write"},
			"content": map[string]interface{}{"type": "string", "description": "New file contents"},
		},
		[]string{"user", "path", "content"},
	)
}

func (t *EditFileTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Path    string   `xml:"path"`
		Content string   `xml:"content"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}
	if input.Path == "" {
		return "", fmt.Errorf("path is required")
	}

	if err := t.manager.WriteFile(ctx, input.User, input.Path, []byte(input.Content)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(input.Content), input.Path), nil
}

// CommandLogTool returns the session's recent command history.
type CommandLogTool struct {
	manager *terminal.Manager
}

// NewCommandLogTool creates a command-log tool.
func NewCommandLogTool(manager *terminal.Manager) *CommandLogTool {
	return &CommandLogTool{manager: manager}
}

func (t *CommandLogTool) Name() string {
	return "terminal_command_log"
}

func (t *CommandLogTool) Description() string {
	return "List the commands executed in this session, oldest first, with their outcomes."
}

func (t *CommandLogTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{"user": userSchema()},
		[]string{"user"},
	)
}

func (t *CommandLogTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}

	entries := t.manager.CommandLog(input.User)
	if len(entries) == 0 {
		return "No commands executed yet", nil
	}

	var b strings.Builder
	for _, e := range entries {
		outcome := "ok"
		if !e.Success {
			outcome = "failed"
		}
		fmt.Fprintf(&b, "[%s] %s (%s)\n", e.Time.Format("15:04:05"), e.Command, outcome)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// StatusTool reports connection state and working directory.
type StatusTool struct {
	manager *terminal.Manager
}

// NewStatusTool creates a status tool.
func NewStatusTool(manager *terminal.Manager) *StatusTool {
	return &StatusTool{manager: manager}
}

func (t *StatusTool) Name() string {
	return "terminal_status"
}

func (t *StatusTool) Description() string {
	return "Report whether the user's terminal session is connected and its current working directory."
}

func (t *StatusTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{"user": userSchema()},
		[]string{"user"},
	)
}

func (t *StatusTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}

	status := t.manager.Status(input.User)
	if !status.Connected {
		return fmt.Sprintf("No terminal session for %q", input.User), nil
	}
	return fmt.Sprintf("Connected to %s, working directory %s", status.Host, status.Cwd), nil
}

// RegisterAll registers every terminal tool with the registry.
func RegisterAll(registry *tools.Registry, manager *terminal.Manager) {
	registry.Register(
		NewExecuteTool(manager),
		NewChangeDirTool(manager),
		NewReadFileTool(manager),
		NewEditFileTool(manager),
		NewCommandLogTool(manager),
		NewStatusTool(manager),
		NewLaunchDevServerTool(manager),
		NewCheckDevServerTool(manager),
		NewReadLogFileTool(manager),
	)
}
