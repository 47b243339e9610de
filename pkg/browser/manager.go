package browser

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/outpost/pkg/logging"
)

// Config controls manager-wide defaults.
type Config struct {
	// Headless controls whether the shared browser process runs without
	// a visible window.
	Headless bool

	// Viewport is the default size for new contexts and pages.
	Viewport Viewport

	// NavigationTimeout bounds Navigate calls that do not specify their
	// own timeout.
	NavigationTimeout time.Duration

	// MaxContexts caps the number of live contexts.
	MaxContexts int

	// IdleTimeout is how long a context may sit unused before CloseIdle
	// reaps it.
	IdleTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport = DefaultViewport()
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultTimeout
	}
	if c.MaxContexts <= 0 {
		c.MaxContexts = DefaultMaxContexts
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
}

// Manager owns the shared browser process and every context and page
// derived from it. One instance serves all concurrent request handlers.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	browser  DriverBrowser
	started  bool
	contexts map[string]*contextHandle
	cfg      Config
	log      *logging.Logger
}

// contextHandle is the manager's record of one live driver context.
type contextHandle struct {
	key      string
	driver   DriverContext
	closed   atomic.Bool
	mu       sync.RWMutex
	pages    map[string]*pageHandle
	viewport Viewport
	lastUsed time.Time
}

// pageHandle is the manager's record of one live driver page. Driver
// calls on a page are serialized by its mutex; the closed flag is set
// without taking the mutex so teardown never waits behind a slow call.
// The viewport has its own lock so status snapshots never wait behind
// an in-flight driver call either.
type pageHandle struct {
	key    string
	driver DriverPage
	closed atomic.Bool
	mu     sync.Mutex

	vpMu     sync.Mutex
	viewport Viewport
}

func (p *pageHandle) getViewport() Viewport {
	p.vpMu.Lock()
	defer p.vpMu.Unlock()
	return p.viewport
}

func (p *pageHandle) setViewport(vp Viewport) {
	p.vpMu.Lock()
	p.viewport = vp
	p.vpMu.Unlock()
}

// NewManager creates a manager using the given driver. Pass
// NewPlaywrightDriver() in production.
func NewManager(driver Driver, cfg Config, log *logging.Logger) *Manager {
	cfg.applyDefaults()
	return &Manager{
		driver:   driver,
		contexts: make(map[string]*contextHandle),
		cfg:      cfg,
		log:      log,
	}
}

// EnsureStarted launches the shared browser process if it is not already
// running. Idempotent; concurrent callers are serialized so the process
// is launched exactly once.
func (m *Manager) EnsureStarted(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	browser, err := m.driver.Start(m.cfg.Headless)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStart, err)
	}

	m.browser = browser
	m.started = true
	m.log.Infof("browser process started (headless=%v)", m.cfg.Headless)
	return nil
}

// Started reports whether the browser process is running.
func (m *Manager) Started() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

// GetOrCreateContext returns the context for key, creating it if absent.
// A zero viewport falls back to the configured default. Calling with a
// different viewport on an existing context resizes its pages in place.
func (m *Manager) GetOrCreateContext(ctx context.Context, key string, vp Viewport) error {
	_, err := m.getOrCreateContext(ctx, key, vp)
	return err
}

func (m *Manager) getOrCreateContext(ctx context.Context, key string, vp Viewport) (*contextHandle, error) {
	m.mu.RLock()
	handle, ok := m.contexts[key]
	m.mu.RUnlock()
	if ok {
		if err := handle.maybeResize(vp); err != nil {
			return nil, err
		}
		return handle, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The race for a brand-new key is decided here: the second caller
	// observes the first caller's handle and returns it.
	if handle, ok := m.contexts[key]; ok {
		return handle, nil
	}
	if !m.started {
		return nil, ErrNotStarted
	}
	if len(m.contexts) >= m.cfg.MaxContexts {
		return nil, fmt.Errorf("%w (%d)", ErrTooManyContexts, m.cfg.MaxContexts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if vp.Width <= 0 || vp.Height <= 0 {
		vp = m.cfg.Viewport
	}
	driverCtx, err := m.browser.NewContext(vp)
	if err != nil {
		return nil, driverErr("createContext", err)
	}

	handle = &contextHandle{
		key:      key,
		driver:   driverCtx,
		pages:    make(map[string]*pageHandle),
		viewport: vp,
		lastUsed: time.Now(),
	}
	m.contexts[key] = handle
	m.log.Infof("created browser context %q (viewport %dx%d)", key, vp.Width, vp.Height)
	return handle, nil
}

// GetOrCreatePage returns or creates a page within a context, creating
// the context too if absent. An empty pageKey means DefaultPageKey.
func (m *Manager) GetOrCreatePage(ctx context.Context, contextKey, pageKey string, vp Viewport) error {
	_, _, err := m.getOrCreatePage(ctx, contextKey, pageKey, vp)
	return err
}

func (m *Manager) getOrCreatePage(ctx context.Context, contextKey, pageKey string, vp Viewport) (*contextHandle, *pageHandle, error) {
	if pageKey == "" {
		pageKey = DefaultPageKey
	}

	handle, err := m.getOrCreateContext(ctx, contextKey, vp)
	if err != nil {
		return nil, nil, err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.closed.Load() {
		return nil, nil, ErrContextNotFound
	}
	handle.lastUsed = time.Now()

	if page, ok := handle.pages[pageKey]; ok {
		return handle, page, nil
	}

	if vp.Width <= 0 || vp.Height <= 0 {
		vp = handle.viewport
	}
	driverPage, err := handle.driver.NewPage(vp)
	if err != nil {
		return nil, nil, driverErr("createPage", err)
	}

	page := &pageHandle{key: pageKey, driver: driverPage, viewport: vp}
	handle.pages[pageKey] = page
	m.log.Infof("created page %q in context %q", pageKey, contextKey)
	return handle, page, nil
}

// lookupPage resolves an existing (context, page) pair without creating
// anything, and refreshes the context's last-used time.
func (m *Manager) lookupPage(contextKey, pageKey string) (*pageHandle, error) {
	if pageKey == "" {
		pageKey = DefaultPageKey
	}

	m.mu.RLock()
	handle, ok := m.contexts[contextKey]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrContextNotFound, contextKey)
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()
	page, ok := handle.pages[pageKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q in context %q", ErrPageNotFound, pageKey, contextKey)
	}
	handle.lastUsed = time.Now()
	return page, nil
}

// Navigate drives a page to url. Failures, including timeouts, are
// reported as ErrNavigation.
func (m *Manager) Navigate(ctx context.Context, contextKey, pageKey, url string, opts NavigateOptions) error {
	_, page, err := m.getOrCreatePage(ctx, contextKey, pageKey, Viewport{})
	if err != nil {
		return err
	}

	if opts.WaitUntil == "" {
		opts.WaitUntil = WaitLoad
	}
	if opts.Timeout <= 0 {
		opts.Timeout = m.cfg.NavigationTimeout
	}

	return page.do(func(p DriverPage) error {
		if err := p.Goto(url, opts.WaitUntil, opts.Timeout); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
		}
		return nil
	})
}

// Input performs one input-simulation primitive on a page.
func (m *Manager) Input(ctx context.Context, contextKey, pageKey string, action Action) error {
	if err := action.Validate(); err != nil {
		return err
	}

	page, err := m.lookupPage(contextKey, pageKey)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return page.do(func(p DriverPage) error {
		if err := action.apply(p); err != nil {
			return driverErr(action.Kind(), err)
		}
		return nil
	})
}

// Drag composes move, down, move, up. The sequence is not atomic at the
// driver level; a mid-sequence failure is reported as a DragError naming
// the failing step, since the button may be logically held down.
func (m *Manager) Drag(ctx context.Context, contextKey, pageKey string, start, end Point, button MouseButton) error {
	page, err := m.lookupPage(contextKey, pageKey)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	button = orLeft(button)

	return page.do(func(p DriverPage) error {
		if err := p.MouseMove(start.X, start.Y); err != nil {
			return &DragError{Step: "move", Err: err}
		}
		if err := p.MouseDown(button); err != nil {
			return &DragError{Step: "down", Err: err}
		}
		if err := p.MouseMove(end.X, end.Y); err != nil {
			return &DragError{Step: "drag-move", Err: err}
		}
		if err := p.MouseUp(button); err != nil {
			return &DragError{Step: "up", Err: err}
		}
		return nil
	})
}

// Screenshot captures a page and returns the image bytes along with the
// page's current viewport.
func (m *Manager) Screenshot(ctx context.Context, contextKey, pageKey string) (*Screenshot, error) {
	page, err := m.lookupPage(contextKey, pageKey)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var shot *Screenshot
	err = page.do(func(p DriverPage) error {
		data, err := p.Screenshot()
		if err != nil {
			return driverErr("screenshot", err)
		}
		shot = &Screenshot{Data: data, Viewport: page.getViewport()}
		return nil
	})
	return shot, err
}

// GoBack navigates back in the page's history. A no-op when there is no
// history in that direction.
func (m *Manager) GoBack(ctx context.Context, contextKey, pageKey string) error {
	return m.historyMove(contextKey, pageKey, "goBack")
}

// GoForward navigates forward in the page's history. A no-op when there
// is no history in that direction.
func (m *Manager) GoForward(ctx context.Context, contextKey, pageKey string) error {
	return m.historyMove(contextKey, pageKey, "goForward")
}

func (m *Manager) historyMove(contextKey, pageKey, direction string) error {
	page, err := m.lookupPage(contextKey, pageKey)
	if err != nil {
		return err
	}

	return page.do(func(p DriverPage) error {
		var err error
		if direction == "goBack" {
			err = p.GoBack()
		} else {
			err = p.GoForward()
		}
		if err != nil {
			return driverErr(direction, err)
		}
		return nil
	})
}

// ViewportSize returns a page's current viewport.
func (m *Manager) ViewportSize(contextKey, pageKey string) (Viewport, error) {
	page, err := m.lookupPage(contextKey, pageKey)
	if err != nil {
		return Viewport{}, err
	}
	return page.getViewport(), nil
}

// SetViewportSize resizes a page.
func (m *Manager) SetViewportSize(ctx context.Context, contextKey, pageKey string, vp Viewport) error {
	if vp.Width <= 0 || vp.Height <= 0 {
		return fmt.Errorf("%w: setViewportSize requires positive dimensions", ErrInvalidAction)
	}

	page, err := m.lookupPage(contextKey, pageKey)
	if err != nil {
		return err
	}

	return page.do(func(p DriverPage) error {
		if err := p.SetViewport(vp); err != nil {
			return driverErr("setViewportSize", err)
		}
		page.setViewport(vp)
		return nil
	})
}

// Cookies returns the cookie set visible to url within a context. An
// empty url returns all cookies of the context.
func (m *Manager) Cookies(ctx context.Context, contextKey, url string) ([]Cookie, error) {
	m.mu.RLock()
	handle, ok := m.contexts[contextKey]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrContextNotFound, contextKey)
	}

	cookies, err := handle.driver.Cookies(url)
	if err != nil {
		if handle.closed.Load() {
			return nil, ErrClosed
		}
		return nil, driverErr("getCookies", err)
	}
	return cookies, nil
}

// DeletePage closes and removes a page. Deleting the last page of a
// context leaves the context alive.
func (m *Manager) DeletePage(contextKey, pageKey string) error {
	if pageKey == "" {
		pageKey = DefaultPageKey
	}

	m.mu.RLock()
	handle, ok := m.contexts[contextKey]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrContextNotFound, contextKey)
	}

	handle.mu.Lock()
	page, ok := handle.pages[pageKey]
	if !ok {
		handle.mu.Unlock()
		return fmt.Errorf("%w: %q in context %q", ErrPageNotFound, pageKey, contextKey)
	}
	delete(handle.pages, pageKey)
	handle.mu.Unlock()

	page.closed.Store(true)
	if err := page.driver.Close(); err != nil {
		m.log.Warnf("closing page %q in context %q: %v", pageKey, contextKey, err)
	}
	return nil
}

// RenamePage changes a page's key while the underlying resource
// persists. Renaming onto an existing key is rejected.
func (m *Manager) RenamePage(contextKey, oldKey, newKey string) error {
	if newKey == "" {
		return fmt.Errorf("%w: renamePage requires a new key", ErrInvalidAction)
	}
	if oldKey == "" {
		oldKey = DefaultPageKey
	}

	m.mu.RLock()
	handle, ok := m.contexts[contextKey]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrContextNotFound, contextKey)
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	page, ok := handle.pages[oldKey]
	if !ok {
		return fmt.Errorf("%w: %q in context %q", ErrPageNotFound, oldKey, contextKey)
	}
	if _, taken := handle.pages[newKey]; taken {
		return fmt.Errorf("%w: %q in context %q", ErrPageExists, newKey, contextKey)
	}

	delete(handle.pages, oldKey)
	page.key = newKey
	handle.pages[newKey] = page
	return nil
}

// CloseContext releases a context and all its pages. A no-op for an
// unknown key.
func (m *Manager) CloseContext(contextKey string) error {
	m.mu.Lock()
	handle, ok := m.contexts[contextKey]
	if ok {
		delete(m.contexts, contextKey)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	m.closeContextHandle(handle)
	m.log.Infof("closed browser context %q", contextKey)
	return nil
}

func (m *Manager) closeContextHandle(handle *contextHandle) {
	handle.closed.Store(true)

	handle.mu.Lock()
	pages := make([]*pageHandle, 0, len(handle.pages))
	for key, page := range handle.pages {
		pages = append(pages, page)
		delete(handle.pages, key)
	}
	handle.mu.Unlock()

	for _, page := range pages {
		page.closed.Store(true)
		if err := page.driver.Close(); err != nil {
			m.log.Warnf("closing page %q: %v", page.key, err)
		}
	}
	if err := handle.driver.Close(); err != nil {
		m.log.Warnf("closing context %q: %v", handle.key, err)
	}
}

// CloseAll tears down every context, the browser process, and the
// driver. Safe to call when nothing is started, and safe to call twice.
// Operations racing with CloseAll fail with ErrClosed.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	handles := make([]*contextHandle, 0, len(m.contexts))
	for key, handle := range m.contexts {
		handles = append(handles, handle)
		delete(m.contexts, key)
	}
	browser := m.browser
	started := m.started
	m.browser = nil
	m.started = false
	m.mu.Unlock()

	for _, handle := range handles {
		m.closeContextHandle(handle)
	}

	if !started {
		return nil
	}
	if err := browser.Close(); err != nil {
		m.log.Warnf("closing browser process: %v", err)
	}
	if err := m.driver.Stop(); err != nil {
		return err
	}
	m.log.Infof("browser process stopped")
	return nil
}

// CloseIdle reaps contexts that have been unused for longer than the
// configured idle timeout and returns the keys it closed.
func (m *Manager) CloseIdle() []string {
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var idle []*contextHandle
	for key, handle := range m.contexts {
		handle.mu.RLock()
		lastUsed := handle.lastUsed
		handle.mu.RUnlock()
		if lastUsed.Before(cutoff) {
			idle = append(idle, handle)
			delete(m.contexts, key)
		}
	}
	m.mu.Unlock()

	keys := make([]string, 0, len(idle))
	for _, handle := range idle {
		m.closeContextHandle(handle)
		keys = append(keys, handle.key)
		m.log.Infof("reaped idle browser context %q", handle.key)
	}
	return keys
}

// RunIdleReaper periodically closes idle contexts until ctx is done.
func (m *Manager) RunIdleReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CloseIdle()
		}
	}
}

// Status returns a snapshot of manager state. contextKey may be empty to
// list all contexts without page detail; with a key, the snapshot
// includes that context's pages and viewports. No driver I/O.
func (m *Manager) Status(contextKey string) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := &Status{Running: m.started}

	if contextKey != "" {
		handle, ok := m.contexts[contextKey]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrContextNotFound, contextKey)
		}
		status.Contexts = append(status.Contexts, handle.snapshot(true))
		return status, nil
	}

	for _, handle := range m.contexts {
		status.Contexts = append(status.Contexts, handle.snapshot(false))
	}
	sort.Slice(status.Contexts, func(i, j int) bool {
		return status.Contexts[i].Key < status.Contexts[j].Key
	})
	return status, nil
}

func (h *contextHandle) snapshot(withPages bool) ContextStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cs := ContextStatus{Key: h.key, LastUsedAt: h.lastUsed}
	if !withPages {
		return cs
	}
	for key, page := range h.pages {
		cs.Pages = append(cs.Pages, PageStatus{
			Key:      key,
			URL:      page.driver.URL(),
			Viewport: page.getViewport(),
		})
	}
	sort.Slice(cs.Pages, func(i, j int) bool { return cs.Pages[i].Key < cs.Pages[j].Key })
	return cs
}

// maybeResize applies a new viewport to an existing context and all of
// its pages. A zero or unchanged viewport is a no-op.
func (h *contextHandle) maybeResize(vp Viewport) error {
	if vp.Width <= 0 || vp.Height <= 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if vp == h.viewport {
		return nil
	}
	h.viewport = vp

	for _, page := range h.pages {
		page := page
		err := page.do(func(p DriverPage) error {
			if err := p.SetViewport(vp); err != nil {
				return driverErr("resizeContext", err)
			}
			page.setViewport(vp)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// do serializes a driver call on this page. Teardown flips the closed
// flag without waiting for in-flight calls, so a call racing with close
// reports ErrClosed instead of a raw transport failure.
func (p *pageHandle) do(fn func(DriverPage) error) error {
	if p.closed.Load() {
		return ErrClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}
	if err := fn(p.driver); err != nil {
		if p.closed.Load() {
			return ErrClosed
		}
		return err
	}
	return nil
}
