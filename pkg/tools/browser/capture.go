package browser

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/outpost/pkg/browser"
	"github.com/entrhq/outpost/pkg/tools"
)

// ScreenshotTool captures a page as a PNG.
type ScreenshotTool struct {
	manager *browser.Manager
}

// NewScreenshotTool creates a screenshot tool.
func NewScreenshotTool(manager *browser.Manager) *ScreenshotTool {
	return &ScreenshotTool{manager: manager}
}

func (t *ScreenshotTool) Name() string {
	return "browser_screenshot"
}

func (t *ScreenshotTool) Description() string {
	return "Capture a screenshot of the page. Returns the image as base64 PNG along with the viewport size."
}

func (t *ScreenshotTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{"user": userSchema(), "page": pageSchema()},
		[]string{"user"},
	)
}

func (t *ScreenshotTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
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

	shot, err := t.manager.Screenshot(ctx, input.User, input.Page)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Screenshot captured (%dx%d, %d bytes)\n%s",
		shot.Viewport.Width, shot.Viewport.Height, len(shot.Data),
		base64.StdEncoding.EncodeToString(shot.Data)), nil
}

func (t *ScreenshotTool) Visible() bool { return t.manager.Started() }

// ExtractContentTool returns the page's visible content as text or
// markdown with scripts and styles stripped.
type ExtractContentTool struct {
	manager *browser.Manager
}

// NewExtractContentTool creates an extract-content tool.
func NewExtractContentTool(manager *browser.Manager) *ExtractContentTool {
	return &ExtractContentTool{manager: manager}
}

func (t *ExtractContentTool) Name() string {
	return "browser_extract_content"
}

func (t *ExtractContentTool) Description() string {
	return "Extract the page's visible content as markdown or plain text, with scripts and styles removed."
}

func (t *ExtractContentTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user": userSchema(),
			"page": pageSchema(),
			"format": map[string]interface{}{
				"type":        "string",
				"description": "Output format: 'markdown' (default) or 'text'",
			},
			"max_length": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum content length in bytes (default: 10000)",
			},
		},
		[]string{"user"},
	)
}

func (t *ExtractContentTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName   xml.Name `xml:"arguments"`
		User      string   `xml:"user"`
		Page      string   `xml:"page"`
		Format    string   `xml:"format"`
		MaxLength int      `xml:"max_length"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}

	return t.manager.ExtractContent(ctx, input.User, input.Page, browser.ExtractOptions{
		Format:    browser.ExtractFormat(input.Format),
		MaxLength: input.MaxLength,
	})
}

func (t *ExtractContentTool) Visible() bool { return t.manager.Started() }
