package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/outpost/pkg/browser"
	"github.com/entrhq/outpost/pkg/logging"
	"github.com/entrhq/outpost/pkg/tools"
)

type stubDriver struct{}

func (stubDriver) Start(headless bool) (browser.DriverBrowser, error) { return stubBrowser{}, nil }
func (stubDriver) Stop() error                                        { return nil }

type stubBrowser struct{}

func (stubBrowser) NewContext(vp browser.Viewport) (browser.DriverContext, error) {
	return stubContext{}, nil
}
func (stubBrowser) Close() error { return nil }

type stubContext struct{}

func (stubContext) NewPage(vp browser.Viewport) (browser.DriverPage, error) {
	return &stubPage{}, nil
}
func (stubContext) Cookies(url string) ([]browser.Cookie, error) { return nil, nil }
func (stubContext) Close() error                                 { return nil }

type stubPage struct {
	url string
}

func (p *stubPage) Goto(url string, w browser.WaitUntil, d time.Duration) error {
	p.url = url
	return nil
}
func (p *stubPage) GoBack() error                                         { return nil }
func (p *stubPage) GoForward() error                                      { return nil }
func (p *stubPage) SetViewport(vp browser.Viewport) error                 { return nil }
func (p *stubPage) Screenshot() ([]byte, error)                           { return []byte("png"), nil }
func (p *stubPage) Content() (string, error)                              { return "<p>hi</p>", nil }
func (p *stubPage) URL() string                                           { return p.url }
func (p *stubPage) MouseMove(x, y float64) error                          { return nil }
func (p *stubPage) MouseDown(b browser.MouseButton) error                 { return nil }
func (p *stubPage) MouseUp(b browser.MouseButton) error                   { return nil }
func (p *stubPage) Click(x, y float64, b browser.MouseButton) error       { return nil }
func (p *stubPage) DoubleClick(x, y float64, b browser.MouseButton) error { return nil }
func (p *stubPage) Scroll(dx, dy float64) error                           { return nil }
func (p *stubPage) PressKey(key string) error                             { return nil }
func (p *stubPage) TypeText(text string) error                            { return nil }
func (p *stubPage) Close() error                                          { return nil }

func newToolManager(t *testing.T) *browser.Manager {
	t.Helper()
	m := browser.NewManager(stubDriver{}, browser.Config{}, logging.NewNop())
	t.Cleanup(func() { _ = m.CloseAll() })
	return m
}

func TestNavigateToolStartsAndNavigates(t *testing.T) {
	m := newToolManager(t)
	tool := NewNavigateTool(m)

	out, err := tool.Execute(context.Background(),
		[]byte(`<arguments><user>alice</user><url>https://example.com</url></arguments>`))
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com")
	assert.True(t, m.Started(), "navigate must boot the browser on first use")
}

func TestNavigateToolValidation(t *testing.T) {
	tool := NewNavigateTool(newToolManager(t))

	_, err := tool.Execute(context.Background(), []byte(`<arguments><url>https://x</url></arguments>`))
	assert.Error(t, err, "missing user")

	_, err = tool.Execute(context.Background(), []byte(`<arguments><user>alice</user></arguments>`))
	assert.Error(t, err, "missing url")

	_, err = tool.Execute(context.Background(),
		[]byte(`<arguments><user>alice</user><url>https://x</url><wait_until>eventually</wait_until></arguments>`))
	assert.Error(t, err, "bad wait_until")
}

func TestInteractionToolsHiddenUntilStarted(t *testing.T) {
	m := newToolManager(t)
	registry := tools.NewRegistry()
	RegisterAll(registry, m)

	visibleNames := func() map[string]bool {
		names := make(map[string]bool)
		for _, tool := range registry.ListVisible() {
			names[tool.Name()] = true
		}
		return names
	}

	before := visibleNames()
	assert.True(t, before["browser_navigate"], "the entry point is always visible")
	assert.False(t, before["browser_screenshot"])
	assert.False(t, before["browser_back"])

	require.NoError(t, m.EnsureStarted(context.Background()))

	after := visibleNames()
	assert.True(t, after["browser_screenshot"])
	assert.True(t, after["browser_back"])
}

func TestScreenshotTool(t *testing.T) {
	m := newToolManager(t)
	require.NoError(t, m.EnsureStarted(context.Background()))
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", browser.Viewport{}))

	out, err := NewScreenshotTool(m).Execute(context.Background(),
		[]byte(`<arguments><user>alice</user></arguments>`))
	require.NoError(t, err)
	assert.Contains(t, out, "Screenshot captured")
}
