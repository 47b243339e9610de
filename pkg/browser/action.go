package browser

import "fmt"

// Action is one input-simulation primitive. The set of actions is a
// closed sum: each variant carries exactly the fields it needs, so a
// malformed request fails in Validate rather than in a runtime
// default-case fallthrough.
//
// Coordinates are interpreted in the page's current viewport pixel
// space; no scaling is applied.
type Action interface {
	// Kind returns the wire name of the action.
	Kind() string

	// Validate reports ErrInvalidAction when a required field is missing.
	Validate() error

	// apply performs the action against the driver page. The Manager
	// calls this while holding the page lock.
	apply(p DriverPage) error
}

// Move moves the mouse pointer.
type Move struct {
	Pos Point
}

func (Move) Kind() string            { return "mouseMove" }
func (Move) Validate() error         { return nil }
func (a Move) apply(p DriverPage) error { return p.MouseMove(a.Pos.X, a.Pos.Y) }

// Click presses and releases a mouse button at a position.
type Click struct {
	Pos    Point
	Button MouseButton
}

func (Click) Kind() string    { return "click" }
func (Click) Validate() error { return nil }
func (a Click) apply(p DriverPage) error {
	return p.Click(a.Pos.X, a.Pos.Y, orLeft(a.Button))
}

// DoubleClick double-clicks at a position.
type DoubleClick struct {
	Pos    Point
	Button MouseButton
}

func (DoubleClick) Kind() string    { return "doubleClick" }
func (DoubleClick) Validate() error { return nil }
func (a DoubleClick) apply(p DriverPage) error {
	return p.DoubleClick(a.Pos.X, a.Pos.Y, orLeft(a.Button))
}

// Down presses a mouse button at the pointer's current position.
type Down struct {
	Button MouseButton
}

func (Down) Kind() string            { return "mouseDown" }
func (Down) Validate() error         { return nil }
func (a Down) apply(p DriverPage) error { return p.MouseDown(orLeft(a.Button)) }

// Up releases a mouse button.
type Up struct {
	Button MouseButton
}

func (Up) Kind() string            { return "mouseUp" }
func (Up) Validate() error         { return nil }
func (a Up) apply(p DriverPage) error { return p.MouseUp(orLeft(a.Button)) }

// Scroll turns the mouse wheel.
type Scroll struct {
	DeltaX float64
	DeltaY float64
}

func (Scroll) Kind() string { return "scroll" }
func (a Scroll) Validate() error {
	if a.DeltaX == 0 && a.DeltaY == 0 {
		return fmt.Errorf("%w: scroll requires a non-zero delta", ErrInvalidAction)
	}
	return nil
}
func (a Scroll) apply(p DriverPage) error { return p.Scroll(a.DeltaX, a.DeltaY) }

// KeyPress presses a single named key, e.g. "Enter" or "Control+a".
type KeyPress struct {
	Key string
}

func (KeyPress) Kind() string { return "pressKey" }
func (a KeyPress) Validate() error {
	if a.Key == "" {
		return fmt.Errorf("%w: pressKey requires a key", ErrInvalidAction)
	}
	return nil
}
func (a KeyPress) apply(p DriverPage) error { return p.PressKey(a.Key) }

// TypeText types a string into the focused element.
type TypeText struct {
	Text string
}

func (TypeText) Kind() string { return "typeText" }
func (a TypeText) Validate() error {
	if a.Text == "" {
		return fmt.Errorf("%w: typeText requires text", ErrInvalidAction)
	}
	return nil
}
func (a TypeText) apply(p DriverPage) error { return p.TypeText(a.Text) }

func orLeft(b MouseButton) MouseButton {
	if b == "" {
		return ButtonLeft
	}
	return b
}
