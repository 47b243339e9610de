package browser

import "time"

// Driver abstracts the browser automation backend. The production
// implementation wraps Playwright; tests substitute an in-memory fake.
// The surface is deliberately narrow: only the primitives the Manager
// translates logical actions into.
type Driver interface {
	// Start launches the shared browser process.
	Start(headless bool) (DriverBrowser, error)

	// Stop tears down the driver after the browser process is closed.
	Stop() error
}

// DriverBrowser is the single shared browser process.
type DriverBrowser interface {
	NewContext(vp Viewport) (DriverContext, error)
	Close() error
}

// DriverContext is one isolated browsing identity.
type DriverContext interface {
	NewPage(vp Viewport) (DriverPage, error)

	// Cookies returns the cookies visible to the given URL, or all
	// cookies of the context when url is empty.
	Cookies(url string) ([]Cookie, error)

	Close() error
}

// DriverPage is one navigable document surface.
type DriverPage interface {
	Goto(url string, waitUntil WaitUntil, timeout time.Duration) error
	GoBack() error
	GoForward() error
	SetViewport(vp Viewport) error
	Screenshot() ([]byte, error)
	Content() (string, error)
	URL() string

	MouseMove(x, y float64) error
	MouseDown(button MouseButton) error
	MouseUp(button MouseButton) error
	Click(x, y float64, button MouseButton) error
	DoubleClick(x, y float64, button MouseButton) error
	Scroll(deltaX, deltaY float64) error
	PressKey(key string) error
	TypeText(text string) error

	Close() error
}
