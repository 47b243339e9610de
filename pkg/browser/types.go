package browser

import "time"

// Viewport represents page dimensions in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point is a coordinate in the page's current viewport pixel space.
// No scaling is applied; callers are responsible for any transform.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MouseButton identifies which mouse button an action uses.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// WaitUntil specifies when navigation is considered complete.
type WaitUntil string

const (
	WaitLoad        WaitUntil = "load"
	WaitDOMReady    WaitUntil = "domcontentloaded"
	WaitNetworkIdle WaitUntil = "networkidle"
)

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies the readiness condition; defaults to WaitLoad.
	WaitUntil WaitUntil

	// Timeout bounds the navigation wait; zero means the manager default.
	Timeout time.Duration
}

// Screenshot is the result of capturing a page.
type Screenshot struct {
	Data     []byte
	Viewport Viewport
}

// Cookie is a snapshot of one cookie visible within a context.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// Status is a cheap snapshot of manager state. It is assembled from
// in-memory bookkeeping only and performs no driver I/O.
type Status struct {
	Running  bool            `json:"running"`
	Contexts []ContextStatus `json:"contexts"`
}

// ContextStatus describes one live context.
type ContextStatus struct {
	Key        string       `json:"key"`
	Pages      []PageStatus `json:"pages"`
	LastUsedAt time.Time    `json:"lastUsedAt"`
}

// PageStatus describes one live page.
type PageStatus struct {
	Key      string   `json:"key"`
	URL      string   `json:"url"`
	Viewport Viewport `json:"viewport"`
}

// Defaults applied when the caller or configuration leaves a value unset.
const (
	DefaultPageKey        = "main"
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultTimeout        = 30 * time.Second
	DefaultMaxContexts    = 10
	DefaultIdleTimeout    = 5 * time.Minute
)

// DefaultViewport returns the fallback viewport size.
func DefaultViewport() Viewport {
	return Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
}
