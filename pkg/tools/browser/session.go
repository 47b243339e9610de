package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/outpost/pkg/browser"
	"github.com/entrhq/outpost/pkg/tools"
)

// StatusTool reports the manager's state: whether the browser process
// is running and which contexts and pages are live.
type StatusTool struct {
	manager *browser.Manager
}

// NewStatusTool creates a status tool.
func NewStatusTool(manager *browser.Manager) *StatusTool {
	return &StatusTool{manager: manager}
}

func (t *StatusTool) Name() string {
	return "browser_status"
}

func (t *StatusTool) Description() string {
	return "Report browser state: whether the process is running, live contexts, and (for a specific user) pages and viewports."
}

func (t *StatusTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user": map[string]interface{}{
				"type":        "string",
				"description": "Optional user id; when set, includes that context's pages",
			},
		},
		nil,
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

	status, err := t.manager.Status(input.User)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Browser running: %v\n", status.Running)
	for _, c := range status.Contexts {
		fmt.Fprintf(&b, "Context %q (last used %s)\n", c.Key, c.LastUsedAt.Format("15:04:05"))
		for _, p := range c.Pages {
			fmt.Fprintf(&b, "  page %q: %s (%dx%d)\n", p.Key, p.URL, p.Viewport.Width, p.Viewport.Height)
		}
	}
	return b.String(), nil
}

// CloseContextTool releases one user's browser context and all of its
// pages.
type CloseContextTool struct {
	manager *browser.Manager
}

// NewCloseContextTool creates a close-context tool.
func NewCloseContextTool(manager *browser.Manager) *CloseContextTool {
	return &CloseContextTool{manager: manager}
}

func (t *CloseContextTool) Name() string {
	return "browser_close_context"
}

func (t *CloseContextTool) Description() string {
	return "Close a user's browser context, releasing all of its pages. Safe to call when the context does not exist."
}

func (t *CloseContextTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{"user": userSchema()},
		[]string{"user"},
	)
}

func (t *CloseContextTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
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

	if err := t.manager.CloseContext(input.User); err != nil {
		return "", err
	}
	return fmt.Sprintf("Closed browser context for %q", input.User), nil
}

// RegisterAll registers every browser tool with the registry.
func RegisterAll(registry *tools.Registry, manager *browser.Manager) {
	registry.Register(
		NewNavigateTool(manager),
		NewBackTool(manager),
		NewForwardTool(manager),
		NewClickTool(manager),
		NewDoubleClickTool(manager),
		NewTypeTextTool(manager),
		NewPressKeyTool(manager),
		NewScrollTool(manager),
		NewDragTool(manager),
		NewScreenshotTool(manager),
		NewExtractContentTool(manager),
		NewStatusTool(manager),
		NewCloseContextTool(manager),
	)
}
