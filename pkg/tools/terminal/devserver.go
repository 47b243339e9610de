package terminal

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/entrhq/outpost/pkg/terminal"
	"github.com/entrhq/outpost/pkg/tools"
)

// Dev-server convenience tools. These are composites over Execute and
// ReadFile; they add no new manager primitive.

const devServerLog = "dev-server.log"

// LaunchDevServerTool starts a long-running dev server in the
// background, detached from the command session, with output captured
// to a log file in the working directory.
type LaunchDevServerTool struct {
	manager *terminal.Manager
}

// NewLaunchDevServerTool creates a launch-dev-server tool.
func NewLaunchDevServerTool(manager *terminal.Manager) *LaunchDevServerTool {
	return &LaunchDevServerTool{manager: manager}
}

func (t *LaunchDevServerTool) Name() string {
	return "terminal_launch_dev_server"
}

func (t *LaunchDevServerTool) Description() string {
	return "Start a development server in the background with output captured to " + devServerLog + ". Use terminal_read_log_file to inspect its output."
}

func (t *LaunchDevServerTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user":    userSchema(),
			"command": map[string]interface{}{"type": "string", "description": "Server start command, e.g. 'npm run dev'"},
		},
		[]string{"user", "command"},
	)
}

func (t *LaunchDevServerTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
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

	// nohup keeps the server alive after the exec channel closes;
	// output goes to the log file the read tool looks for. The line
	// must stay POSIX sh, the remote login shell may not be bash.
	launch := fmt.Sprintf("nohup %s > %s 2>&1 &", input.Command, devServerLog)
	result, err := t.manager.Execute(ctx, input.User, launch)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("dev server launch failed: %s", result.Stderr)
	}
	return fmt.Sprintf("Dev server launched; output captured to %s", devServerLog), nil
}

// CheckDevServerTool reports whether a process matching the given
// command is running.
type CheckDevServerTool struct {
	manager *terminal.Manager
}

// NewCheckDevServerTool creates a check-dev-server tool.
func NewCheckDevServerTool(manager *terminal.Manager) *CheckDevServerTool {
	return &CheckDevServerTool{manager: manager}
}

func (t *CheckDevServerTool) Name() string {
	return "terminal_check_dev_server"
}

func (t *CheckDevServerTool) Description() string {
	return "Check whether a dev server process matching a command pattern is currently running."
}

func (t *CheckDevServerTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user":    userSchema(),
			"pattern": map[string]interface{}{"type": "string", "description": "Process pattern to look for, e.g. 'npm run dev'"},
		},
		[]string{"user", "pattern"},
	)
}

func (t *CheckDevServerTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Pattern string   `xml:"pattern"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}
	if input.Pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}

	result, err := t.manager.Execute(ctx, input.User, fmt.Sprintf("pgrep -f %q", input.Pattern))
	if err != nil {
		return "", err
	}
	// pgrep exits non-zero when nothing matches; that is an answer,
	// not a failure.
	if result.Success && result.Stdout != "" {
		return "Dev server is running", nil
	}
	return "Dev server is not running", nil
}

// ReadLogFileTool reads the captured dev-server log. A log that does
// not exist yet is reported as such rather than as an error.
type ReadLogFileTool struct {
	manager *terminal.Manager
}

// NewReadLogFileTool creates a read-log-file tool.
func NewReadLogFileTool(manager *terminal.Manager) *ReadLogFileTool {
	return &ReadLogFileTool{manager: manager}
}

func (t *ReadLogFileTool) Name() string {
	return "terminal_read_log_file"
}

func (t *ReadLogFileTool) Description() string {
	return "Read the dev server's captured log file from the session's working directory."
}

func (t *ReadLogFileTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user": userSchema(),
			"path": map[string]interface{}{"type": "string", "description": "Log file path (default: " + devServerLog + ")"},
		},
		[]string{"user"},
	)
}

func (t *ReadLogFileTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
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
		input.Path = devServerLog
	}

	data, err := t.manager.ReadFile(ctx, input.User, input.Path)
	if err != nil {
		if errors.Is(err, terminal.ErrFileNotFound) {
			return fmt.Sprintf("Log file %s does not exist yet; the server may not have started", input.Path), nil
		}
		return "", err
	}
	if len(data) == 0 {
		return fmt.Sprintf("Log file %s is empty", input.Path), nil
	}
	return string(data), nil
}
