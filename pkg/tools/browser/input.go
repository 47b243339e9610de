package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/outpost/pkg/browser"
	"github.com/entrhq/outpost/pkg/tools"
)

// ClickTool clicks at viewport coordinates.
type ClickTool struct {
	manager *browser.Manager
	double  bool
}

// NewClickTool creates a single-click tool.
func NewClickTool(manager *browser.Manager) *ClickTool {
	return &ClickTool{manager: manager}
}

// NewDoubleClickTool creates a double-click tool.
func NewDoubleClickTool(manager *browser.Manager) *ClickTool {
	return &ClickTool{manager: manager, double: true}
}

func (t *ClickTool) Name() string {
	if t.double {
		return "browser_double_click"
	}
	return "browser_click"
}

func (t *ClickTool) Description() string {
	verb := "Click"
	if t.double {
		verb = "Double-click"
	}
	return verb + " at a position in the page's current viewport pixel space."
}

func (t *ClickTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user": userSchema(),
			"page": pageSchema(),
			"x":    map[string]interface{}{"type": "number", "description": "X coordinate in viewport pixels"},
			"y":    map[string]interface{}{"type": "number", "description": "Y coordinate in viewport pixels"},
			"button": map[string]interface{}{
				"type":        "string",
				"description": "Mouse button: 'left' (default), 'right', or 'middle'",
			},
		},
		[]string{"user", "x", "y"},
	)
}

func (t *ClickTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Page    string   `xml:"page"`
		X       *float64 `xml:"x"`
		Y       *float64 `xml:"y"`
		Button  string   `xml:"button"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}
	if input.X == nil || input.Y == nil {
		return "", fmt.Errorf("click requires x and y coordinates")
	}

	pos := browser.Point{X: *input.X, Y: *input.Y}
	button := browser.MouseButton(input.Button)
	var action browser.Action
	if t.double {
		action = browser.DoubleClick{Pos: pos, Button: button}
	} else {
		action = browser.Click{Pos: pos, Button: button}
	}

	if err := t.manager.Input(ctx, input.User, input.Page, action); err != nil {
		return "", err
	}
	return fmt.Sprintf("Clicked at (%.0f, %.0f)", pos.X, pos.Y), nil
}

func (t *ClickTool) Visible() bool { return t.manager.Started() }

// TypeTextTool types text into the focused element.
type TypeTextTool struct {
	manager *browser.Manager
}

// NewTypeTextTool creates a type-text tool.
func NewTypeTextTool(manager *browser.Manager) *TypeTextTool {
	return &TypeTextTool{manager: manager}
}

func (t *TypeTextTool) Name() string {
	return "browser_type"
}

func (t *TypeTextTool) Description() string {
	return "Type text into the currently focused element. Click an input first to focus it."
}

func (t *TypeTextTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user": userSchema(),
			"page": pageSchema(),
			"text": map[string]interface{}{"type": "string", "description": "Text to type"},
		},
		[]string{"user", "text"},
	)
}

func (t *TypeTextTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Page    string   `xml:"page"`
		Text    string   `xml:"text"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}

	if err := t.manager.Input(ctx, input.User, input.Page, browser.TypeText{Text: input.Text}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Typed %d characters", len(input.Text)), nil
}

func (t *TypeTextTool) Visible() bool { return t.manager.Started() }

// PressKeyTool presses a named key.
type PressKeyTool struct {
	manager *browser.Manager
}

// NewPressKeyTool creates a key-press tool.
func NewPressKeyTool(manager *browser.Manager) *PressKeyTool {
	return &PressKeyTool{manager: manager}
}

func (t *PressKeyTool) Name() string {
	return "browser_press_key"
}

func (t *PressKeyTool) Description() string {
	return "Press a named key, e.g. 'Enter', 'Tab', 'Escape', or a combination like 'Control+a'."
}

func (t *PressKeyTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user": userSchema(),
			"page": pageSchema(),
			"key":  map[string]interface{}{"type": "string", "description": "Key name to press"},
		},
		[]string{"user", "key"},
	)
}

func (t *PressKeyTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Page    string   `xml:"page"`
		Key     string   `xml:"key"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}

	if err := t.manager.Input(ctx, input.User, input.Page, browser.KeyPress{Key: input.Key}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Pressed %s", input.Key), nil
}

func (t *PressKeyTool) Visible() bool { return t.manager.Started() }

// ScrollTool turns the mouse wheel.
type ScrollTool struct {
	manager *browser.Manager
}

// NewScrollTool creates a scroll tool.
func NewScrollTool(manager *browser.Manager) *ScrollTool {
	return &ScrollTool{manager: manager}
}

func (t *ScrollTool) Name() string {
	return "browser_scroll"
}

func (t *ScrollTool) Description() string {
	return "Scroll the page by a pixel delta. Positive delta_y scrolls down."
}

func (t *ScrollTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user":    userSchema(),
			"page":    pageSchema(),
			"delta_x": map[string]interface{}{"type": "number", "description": "Horizontal scroll in pixels"},
			"delta_y": map[string]interface{}{"type": "number", "description": "Vertical scroll in pixels"},
		},
		[]string{"user"},
	)
}

func (t *ScrollTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Page    string   `xml:"page"`
		DeltaX  float64  `xml:"delta_x"`
		DeltaY  float64  `xml:"delta_y"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}

	action := browser.Scroll{DeltaX: input.DeltaX, DeltaY: input.DeltaY}
	if err := t.manager.Input(ctx, input.User, input.Page, action); err != nil {
		return "", err
	}
	return fmt.Sprintf("Scrolled by (%.0f, %.0f)", input.DeltaX, input.DeltaY), nil
}

func (t *ScrollTool) Visible() bool { return t.manager.Started() }

// DragTool drags from one position to another.
type DragTool struct {
	manager *browser.Manager
}

// NewDragTool creates a drag tool.
func NewDragTool(manager *browser.Manager) *DragTool {
	return &DragTool{manager: manager}
}

func (t *DragTool) Name() string {
	return "browser_drag"
}

func (t *DragTool) Description() string {
	return "Drag the mouse from a start position to an end position with a button held down."
}

func (t *DragTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"user":    userSchema(),
			"page":    pageSchema(),
			"start_x": map[string]interface{}{"type": "number", "description": "Start X in viewport pixels"},
			"start_y": map[string]interface{}{"type": "number", "description": "Start Y in viewport pixels"},
			"end_x":   map[string]interface{}{"type": "number", "description": "End X in viewport pixels"},
			"end_y":   map[string]interface{}{"type": "number", "description": "End Y in viewport pixels"},
			"button": map[string]interface{}{
				"type":        "string",
				"description": "Mouse button: 'left' (default), 'right', or 'middle'",
			},
		},
		[]string{"user", "start_x", "start_y", "end_x", "end_y"},
	)
}

func (t *DragTool) Execute(ctx context.Context, argsXML []byte) (string, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		User    string   `xml:"user"`
		Page    string   `xml:"page"`
		StartX  *float64 `xml:"start_x"`
		StartY  *float64 `xml:"start_y"`
		EndX    *float64 `xml:"end_x"`
		EndY    *float64 `xml:"end_y"`
		Button  string   `xml:"button"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.User == "" {
		return "", fmt.Errorf("user is required")
	}
	if input.StartX == nil || input.StartY == nil || input.EndX == nil || input.EndY == nil {
		return "", fmt.Errorf("drag requires start and end coordinates")
	}

	start := browser.Point{X: *input.StartX, Y: *input.StartY}
	end := browser.Point{X: *input.EndX, Y: *input.EndY}
	err := t.manager.Drag(ctx, input.User, input.Page, start, end, browser.MouseButton(input.Button))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Dragged from (%.0f, %.0f) to (%.0f, %.0f)", start.X, start.Y, end.X, end.Y), nil
}

func (t *DragTool) Visible() bool { return t.manager.Started() }
