// Package browser exposes the browser session manager's operations as
// agent tools. Each tool is scoped by a caller-supplied user id (the
// context key) and an optional page key defaulting to "main".
package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/outpost/pkg/browser"
	"github.com/entrhq/outpost/pkg/tools"
)

// userSchema and pageSchema are shared by every browser tool.
func userSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "User id scoping the browser context",
	}
}

func pageSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Page key within the context (default: main)",
	}
}

// NavigateTool navigates a page to a URL, creating the context and page
// on first use.
type NavigateTool struct {
	manager *browser.Manager
}

// NewNavigateTool creates a navigate tool.
func NewNavigateTool(manager *browser.Manager) *NavigateTool {
	return &NavigateTool{manager: manager}
}

func (t *NavigateTool) Name() string {
	return "browser_navigate"
}

func (t *NavigateTool) Description() string {
	return "Navigate a browser page to a URL. The context and page are created on first use."
}

func (t *NavigateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user": userSchema(),
			"page": pageSchema(),
			"url": map[string]interface{}{
				"type":        "string",
				"description": "URL to navigate to, including protocol",
			},
			"wait_until": map[string]interface{}{
				"type":        "string",
				"description": "Readiness condition: 'load' (default), 'domcontentloaded', or 'networkidle'",
			},
		},
		[]string{"user", "url"},
	)
}

func (t *NavigateTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName   xml.Name `xml:"arguments"`
		User      string   `xml:"user"`
		Page      string   `xml:"page"`
		URL       string   `xml:"url"`
		WaitUntil string   `xml:"wait_until"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}
	if input.URL == "" {
		return "", fmt.Errorf("url is required")
	}

	wait := browser.WaitUntil(input.WaitUntil)
	switch wait {
	case "", browser.WaitLoad, browser.WaitDOMReady, browser.WaitNetworkIdle:
	default:
		return "", fmt.Errorf("invalid wait_until value: %s", input.WaitUntil)
	}

	if err := t.manager.EnsureStarted(ctx); err != nil {
		return "", err
	}
	if err := t.manager.Navigate(ctx, input.User, input.Page, input.URL, browser.NavigateOptions{WaitUntil: wait}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Navigated to %s", input.URL), nil
}

// HistoryTool moves back or forward in a page's history. Moving past
// the end of history is a no-op.
type HistoryTool struct {
	manager *browser.Manager
	forward bool
}

// NewBackTool creates a history-back tool.
func NewBackTool(manager *browser.Manager) *HistoryTool {
	return &HistoryTool{manager: manager}
}

// NewForwardTool creates a history-forward tool.
func NewForwardTool(manager *browser.Manager) *HistoryTool {
	return &HistoryTool{manager: manager, forward: true}
}

func (t *HistoryTool) Name() string {
	if t.forward {
		return "browser_forward"
	}
	return "browser_back"
}

func (t *HistoryTool) Description() string {
	if t.forward {
		return "Navigate forward in the page's history. Does nothing when there is no forward history."
	}
	return "Navigate back in the page's history. Does nothing when there is no back history."
}

func (t *HistoryTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{"user": userSchema(), "page": pageSchema()},
		[]string{"user"},
	)
}

func (t *HistoryTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Page    string   `xml:"page"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}

	var err error
	if t.forward {
		err = t.manager.GoForward(ctx, input.User, input.Page)
	} else {
		err = t.manager.GoBack(ctx, input.User, input.Page)
	}
	if err != nil {
		return "", err
	}
	if t.forward {
		return "Navigated forward", nil
	}
	return "Navigated back", nil
}

// Visible hides history tools until the browser process is running.
func (t *HistoryTool) Visible() bool { return t.manager.Started() }
