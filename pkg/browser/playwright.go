package browser

import (
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightDriver implements Driver on top of Playwright's Chromium.
type PlaywrightDriver struct {
	pw *playwright.Playwright
}

// NewPlaywrightDriver creates the production driver. Browsers are
// downloaded on first Start if missing.
func NewPlaywrightDriver() *PlaywrightDriver {
	return &PlaywrightDriver{}
}

// Start installs and runs Playwright, then launches Chromium. Output from
// the installer is discarded so it cannot interleave with service logs.
func (d *PlaywrightDriver) Start(headless bool) (DriverBrowser, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	d.pw = pw

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		stopErr := pw.Stop()
		if stopErr != nil {
			return nil, fmt.Errorf("failed to launch chromium: %w (stop: %v)", err, stopErr)
		}
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	return &playwrightBrowser{browser: b}, nil
}

func (d *PlaywrightDriver) Stop() error {
	if d.pw == nil {
		return nil
	}
	if err := d.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	d.pw = nil
	return nil
}

type playwrightBrowser struct {
	browser playwright.Browser
}

func (b *playwrightBrowser) NewContext(vp Viewport) (DriverContext, error) {
	ctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: vp.Width, Height: vp.Height},
	})
	if err != nil {
		return nil, err
	}
	return &playwrightContext{ctx: ctx}, nil
}

func (b *playwrightBrowser) Close() error {
	return b.browser.Close()
}

type playwrightContext struct {
	ctx playwright.BrowserContext
}

func (c *playwrightContext) NewPage(vp Viewport) (DriverPage, error) {
	page, err := c.ctx.NewPage()
	if err != nil {
		return nil, err
	}
	if err := page.SetViewportSize(vp.Width, vp.Height); err != nil {
		_ = page.Close()
		return nil, err
	}
	return &playwrightPage{page: page}, nil
}

func (c *playwrightContext) Cookies(url string) ([]Cookie, error) {
	var raw []playwright.Cookie
	var err error
	if url == "" {
		raw, err = c.ctx.Cookies()
	} else {
		raw, err = c.ctx.Cookies(url)
	}
	if err != nil {
		return nil, err
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, pc := range raw {
		cookie := Cookie{
			Name:     pc.Name,
			Value:    pc.Value,
			Domain:   pc.Domain,
			Path:     pc.Path,
			Expires:  pc.Expires,
			HTTPOnly: pc.HttpOnly,
			Secure:   pc.Secure,
		}
		if pc.SameSite != nil {
			cookie.SameSite = string(*pc.SameSite)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

func (c *playwrightContext) Close() error {
	return c.ctx.Close()
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(url string, waitUntil WaitUntil, timeout time.Duration) error {
	state := playwright.WaitUntilStateLoad
	switch waitUntil {
	case WaitDOMReady:
		state = playwright.WaitUntilStateDomcontentloaded
	case WaitNetworkIdle:
		state = playwright.WaitUntilStateNetworkidle
	}

	opts := playwright.PageGotoOptions{WaitUntil: state}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}

	_, err := p.page.Goto(url, opts)
	return err
}

// GoBack and GoForward are no-ops when there is no history in that
// direction; Playwright signals that by returning a nil response, which
// is not an error here.
func (p *playwrightPage) GoBack() error {
	_, err := p.page.GoBack()
	return err
}

func (p *playwrightPage) GoForward() error {
	_, err := p.page.GoForward()
	return err
}

func (p *playwrightPage) SetViewport(vp Viewport) error {
	return p.page.SetViewportSize(vp.Width, vp.Height)
}

func (p *playwrightPage) Screenshot() ([]byte, error) {
	return p.page.Screenshot()
}

func (p *playwrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) MouseMove(x, y float64) error {
	return p.page.Mouse().Move(x, y)
}

func (p *playwrightPage) MouseDown(button MouseButton) error {
	return p.page.Mouse().Down(playwright.MouseDownOptions{Button: pwButton(button)})
}

func (p *playwrightPage) MouseUp(button MouseButton) error {
	return p.page.Mouse().Up(playwright.MouseUpOptions{Button: pwButton(button)})
}

func (p *playwrightPage) Click(x, y float64, button MouseButton) error {
	return p.page.Mouse().Click(x, y, playwright.MouseClickOptions{Button: pwButton(button)})
}

func (p *playwrightPage) DoubleClick(x, y float64, button MouseButton) error {
	return p.page.Mouse().Dblclick(x, y, playwright.MouseDblclickOptions{Button: pwButton(button)})
}

func (p *playwrightPage) Scroll(deltaX, deltaY float64) error {
	return p.page.Mouse().Wheel(deltaX, deltaY)
}

func (p *playwrightPage) PressKey(key string) error {
	return p.page.Keyboard().Press(key)
}

func (p *playwrightPage) TypeText(text string) error {
	return p.page.Keyboard().Type(text)
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

func pwButton(button MouseButton) *playwright.MouseButton {
	switch button {
	case ButtonRight:
		return playwright.MouseButtonRight
	case ButtonMiddle:
		return playwright.MouseButtonMiddle
	default:
		return playwright.MouseButtonLeft
	}
}
