package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/outpost/pkg/logging"
)

// fakeDriver is an in-memory driver that records every call so tests
// can assert on lifecycle and input sequencing without a real browser.
type fakeDriver struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	startErr error
	browser  *fakeBrowser
}

func (d *fakeDriver) Start(headless bool) (DriverBrowser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return nil, d.startErr
	}
	d.started = true
	d.browser = &fakeBrowser{}
	return d.browser, nil
}

func (d *fakeDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

type fakeBrowser struct {
	mu         sync.Mutex
	closed     bool
	contexts   []*fakeContext
	contextErr error
}

func (b *fakeBrowser) NewContext(vp Viewport) (DriverContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.contextErr != nil {
		return nil, b.contextErr
	}
	c := &fakeContext{viewport: vp}
	b.contexts = append(b.contexts, c)
	return c, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type fakeContext struct {
	mu       sync.Mutex
	viewport Viewport
	pages    []*fakePage
	cookies  []Cookie
	closed   bool
}

func (c *fakeContext) NewPage(vp Viewport) (DriverPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &fakePage{viewport: vp, url: "about:blank"}
	c.pages = append(c.pages, p)
	return p, nil
}

func (c *fakeContext) Cookies(url string) ([]Cookie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("context closed")
	}
	return c.cookies, nil
}

func (c *fakeContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakePage struct {
	mu       sync.Mutex
	viewport Viewport
	url      string
	content  string
	calls    []string
	closed   bool

	// failOn makes the named call return an error.
	failOn string

	// gate, when set, blocks Goto until the channel is closed, so tests
	// can hold a navigation in flight.
	gate chan struct{}
}

func (p *fakePage) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if p.failOn == call {
		return fmt.Errorf("%s refused", call)
	}
	return nil
}

func (p *fakePage) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.calls...)
}

func (p *fakePage) Goto(url string, waitUntil WaitUntil, timeout time.Duration) error {
	if err := p.record("goto"); err != nil {
		return err
	}
	p.mu.Lock()
	gate := p.gate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("page torn down")
	}
	p.url = url
	return nil
}

func (p *fakePage) GoBack() error    { return p.record("goBack") }
func (p *fakePage) GoForward() error { return p.record("goForward") }

func (p *fakePage) SetViewport(vp Viewport) error {
	if err := p.record("setViewport"); err != nil {
		return err
	}
	p.mu.Lock()
	p.viewport = vp
	p.mu.Unlock()
	return nil
}

func (p *fakePage) Screenshot() ([]byte, error) {
	if err := p.record("screenshot"); err != nil {
		return nil, err
	}
	return []byte("png-bytes"), nil
}

func (p *fakePage) Content() (string, error) {
	if err := p.record("content"); err != nil {
		return "", err
	}
	return p.content, nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) MouseMove(x, y float64) error {
	return p.record(fmt.Sprintf("move(%g,%g)", x, y))
}
func (p *fakePage) MouseDown(button MouseButton) error { return p.record("down:" + string(button)) }
func (p *fakePage) MouseUp(button MouseButton) error   { return p.record("up:" + string(button)) }
func (p *fakePage) Click(x, y float64, button MouseButton) error {
	return p.record(fmt.Sprintf("click(%g,%g,%s)", x, y, button))
}
func (p *fakePage) DoubleClick(x, y float64, button MouseButton) error {
	return p.record("doubleClick")
}
func (p *fakePage) Scroll(deltaX, deltaY float64) error { return p.record("scroll") }
func (p *fakePage) PressKey(key string) error           { return p.record("press:" + key) }
func (p *fakePage) TypeText(text string) error          { return p.record("type:" + text) }

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *fakeDriver) {
	t.Helper()
	driver := &fakeDriver{}
	m := NewManager(driver, cfg, logging.NewNop())
	require.NoError(t, m.EnsureStarted(context.Background()))
	return m, driver
}

// pageFor digs the fake page out of the driver for assertions.
func pageFor(t *testing.T, driver *fakeDriver, contextIdx, pageIdx int) *fakePage {
	t.Helper()
	driver.mu.Lock()
	defer driver.mu.Unlock()
	require.Greater(t, len(driver.browser.contexts), contextIdx)
	c := driver.browser.contexts[contextIdx]
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Greater(t, len(c.pages), pageIdx)
	return c.pages[pageIdx]
}

func TestEnsureStartedIdempotent(t *testing.T) {
	driver := &fakeDriver{}
	m := NewManager(driver, Config{}, logging.NewNop())

	require.NoError(t, m.EnsureStarted(context.Background()))
	require.NoError(t, m.EnsureStarted(context.Background()))
	assert.True(t, m.Started())
}

func TestEnsureStartedFailure(t *testing.T) {
	driver := &fakeDriver{startErr: errors.New("no chromium")}
	m := NewManager(driver, Config{}, logging.NewNop())

	err := m.EnsureStarted(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStart)
	assert.False(t, m.Started())
}

func TestContextRequiresStart(t *testing.T) {
	m := NewManager(&fakeDriver{}, Config{}, logging.NewNop())
	err := m.GetOrCreateContext(context.Background(), "alice", Viewport{})
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestGetOrCreateContextConcurrent(t *testing.T) {
	m, driver := newTestManager(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.GetOrCreateContext(context.Background(), "alice", Viewport{}))
		}()
	}
	wg.Wait()

	driver.mu.Lock()
	defer driver.mu.Unlock()
	assert.Len(t, driver.browser.contexts, 1, "racing callers must share one context")
}

func TestContextCap(t *testing.T) {
	m, _ := newTestManager(t, Config{MaxContexts: 2})

	require.NoError(t, m.GetOrCreateContext(context.Background(), "a", Viewport{}))
	require.NoError(t, m.GetOrCreateContext(context.Background(), "b", Viewport{}))

	err := m.GetOrCreateContext(context.Background(), "c", Viewport{})
	assert.ErrorIs(t, err, ErrTooManyContexts)

	// Existing keys stay reachable at the cap.
	assert.NoError(t, m.GetOrCreateContext(context.Background(), "a", Viewport{}))
}

func TestNavigateCreatesPageLazily(t *testing.T) {
	m, driver := newTestManager(t, Config{})

	require.NoError(t, m.GetOrCreateContext(context.Background(), "alice", Viewport{}))
	require.NoError(t, m.Navigate(context.Background(), "alice", "", "https://example.com", NavigateOptions{}))

	page := pageFor(t, driver, 0, 0)
	assert.Equal(t, "https://example.com", page.URL())

	status, err := m.Status("alice")
	require.NoError(t, err)
	require.Len(t, status.Contexts, 1)
	require.Len(t, status.Contexts[0].Pages, 1)
	assert.Equal(t, DefaultPageKey, status.Contexts[0].Pages[0].Key)
}

func TestNavigateFailure(t *testing.T) {
	m, driver := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "main", Viewport{}))
	pageFor(t, driver, 0, 0).failOn = "goto"

	err := m.Navigate(context.Background(), "alice", "main", "https://example.com", NavigateOptions{})
	assert.ErrorIs(t, err, ErrNavigation)
}

func TestInputActions(t *testing.T) {
	m, driver := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", Viewport{}))
	page := pageFor(t, driver, 0, 0)

	ctx := context.Background()
	require.NoError(t, m.Input(ctx, "alice", "", Click{Pos: Point{X: 10, Y: 20}}))
	require.NoError(t, m.Input(ctx, "alice", "", TypeText{Text: "hello"}))
	require.NoError(t, m.Input(ctx, "alice", "", KeyPress{Key: "Enter"}))

	assert.Equal(t, []string{"click(10,20,left)", "type:hello", "press:Enter"}, page.recorded())
}

func TestInputValidation(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", Viewport{}))

	ctx := context.Background()
	assert.ErrorIs(t, m.Input(ctx, "alice", "", KeyPress{}), ErrInvalidAction)
	assert.ErrorIs(t, m.Input(ctx, "alice", "", TypeText{}), ErrInvalidAction)
	assert.ErrorIs(t, m.Input(ctx, "alice", "", Scroll{}), ErrInvalidAction)
}

func TestInputUnknownPage(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreateContext(context.Background(), "alice", Viewport{}))

	err := m.Input(context.Background(), "alice", "missing", Click{Pos: Point{X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrPageNotFound)

	err = m.Input(context.Background(), "bob", "", Click{Pos: Point{X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestDragSequence(t *testing.T) {
	m, driver := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", Viewport{}))
	page := pageFor(t, driver, 0, 0)

	require.NoError(t, m.Drag(context.Background(), "alice", "", Point{X: 1, Y: 2}, Point{X: 3, Y: 4}, ""))
	assert.Equal(t, []string{"move(1,2)", "down:left", "move(3,4)", "up:left"}, page.recorded())
}

func TestDragReportsFailingStep(t *testing.T) {
	m, driver := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", Viewport{}))
	pageFor(t, driver, 0, 0).failOn = "down:left"

	err := m.Drag(context.Background(), "alice", "", Point{X: 1, Y: 2}, Point{X: 3, Y: 4}, ButtonLeft)
	require.Error(t, err)

	var dragErr *DragError
	require.ErrorAs(t, err, &dragErr)
	assert.Equal(t, "down", dragErr.Step)
}

func TestScreenshot(t *testing.T) {
	m, _ := newTestManager(t, Config{Viewport: Viewport{Width: 800, Height: 600}})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", Viewport{}))

	shot, err := m.Screenshot(context.Background(), "alice", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), shot.Data)
	assert.Equal(t, Viewport{Width: 800, Height: 600}, shot.Viewport)
}

func TestViewportRoundTrip(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", Viewport{}))

	require.NoError(t, m.SetViewportSize(context.Background(), "alice", "", Viewport{Width: 1024, Height: 768}))
	vp, err := m.ViewportSize("alice", "")
	require.NoError(t, err)
	assert.Equal(t, Viewport{Width: 1024, Height: 768}, vp)

	err = m.SetViewportSize(context.Background(), "alice", "", Viewport{Width: -1, Height: 10})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestContextResizePropagates(t *testing.T) {
	m, driver := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "main", Viewport{Width: 1280, Height: 720}))
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "side", Viewport{}))

	require.NoError(t, m.GetOrCreateContext(context.Background(), "alice", Viewport{Width: 640, Height: 480}))

	for i := 0; i < 2; i++ {
		page := pageFor(t, driver, 0, i)
		page.mu.Lock()
		assert.Equal(t, Viewport{Width: 640, Height: 480}, page.viewport)
		page.mu.Unlock()
	}
}

func TestPageIsolationAcrossContexts(t *testing.T) {
	m, driver := newTestManager(t, Config{})
	require.NoError(t, m.Navigate(context.Background(), "alice", "", "https://a.example", NavigateOptions{}))
	require.NoError(t, m.Navigate(context.Background(), "bob", "", "https://b.example", NavigateOptions{}))

	assert.Equal(t, "https://a.example", pageFor(t, driver, 0, 0).URL())
	assert.Equal(t, "https://b.example", pageFor(t, driver, 1, 0).URL())
}

func TestDeletePageKeepsContext(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "only", Viewport{}))

	require.NoError(t, m.DeletePage("alice", "only"))

	status, err := m.Status("alice")
	require.NoError(t, err)
	require.Len(t, status.Contexts, 1)
	assert.Empty(t, status.Contexts[0].Pages)

	assert.ErrorIs(t, m.DeletePage("alice", "only"), ErrPageNotFound)
}

func TestRenamePage(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	require.NoError(t, m.Navigate(context.Background(), "alice", "main", "https://example.com", NavigateOptions{}))
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "other", Viewport{}))

	assert.ErrorIs(t, m.RenamePage("alice", "main", "other"), ErrPageExists)

	require.NoError(t, m.RenamePage("alice", "main", "primary"))
	status, err := m.Status("alice")
	require.NoError(t, err)
	keys := make([]string, 0, 2)
	var primaryURL string
	for _, p := range status.Contexts[0].Pages {
		keys = append(keys, p.Key)
		if p.Key == "primary" {
			primaryURL = p.URL
		}
	}
	assert.ElementsMatch(t, []string{"primary", "other"}, keys)
	assert.Equal(t, "https://example.com", primaryURL, "rename must preserve the page's state")
}

func TestCloseContextUnknownKeyIsNoOp(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	assert.NoError(t, m.CloseContext("ghost"))
}

func TestCookies(t *testing.T) {
	m, driver := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreateContext(context.Background(), "alice", Viewport{}))
	driver.browser.contexts[0].cookies = []Cookie{{Name: "sid", Value: "abc"}}

	cookies, err := m.Cookies(context.Background(), "alice", "")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)

	_, err = m.Cookies(context.Background(), "bob", "")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestCloseAllIdempotent(t *testing.T) {
	m, driver := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", Viewport{}))

	require.NoError(t, m.CloseAll())
	require.NoError(t, m.CloseAll())

	driver.mu.Lock()
	assert.True(t, driver.stopped)
	assert.True(t, driver.browser.closed)
	driver.mu.Unlock()
	assert.False(t, m.Started())
}

func TestCloseAllOnFreshManager(t *testing.T) {
	m := NewManager(&fakeDriver{}, Config{}, logging.NewNop())
	assert.NoError(t, m.CloseAll())
}

func TestOperationsAfterCloseAll(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", Viewport{}))
	require.NoError(t, m.CloseAll())

	err := m.Input(context.Background(), "alice", "", Click{Pos: Point{X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrContextNotFound)

	err = m.GetOrCreateContext(context.Background(), "alice", Viewport{})
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestCloseAllDuringNavigation(t *testing.T) {
	m, driver := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", Viewport{}))
	page := pageFor(t, driver, 0, 0)

	release := make(chan struct{})
	page.mu.Lock()
	page.gate = release
	page.mu.Unlock()

	navErr := make(chan error, 1)
	go func() {
		navErr <- m.Navigate(context.Background(), "alice", "", "https://slow.example", NavigateOptions{})
	}()

	require.Eventually(t, func() bool {
		for _, call := range page.recorded() {
			if call == "goto" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "navigation never reached the driver")

	// Teardown must not wait behind the hung navigation.
	require.NoError(t, m.CloseAll())

	close(release)
	assert.ErrorIs(t, <-navErr, ErrClosed, "a call racing with teardown reports ErrClosed, not a raw driver failure")
}

func TestCloseIdleReapsOnlyStaleContexts(t *testing.T) {
	m, _ := newTestManager(t, Config{IdleTimeout: 50 * time.Millisecond})
	require.NoError(t, m.GetOrCreateContext(context.Background(), "stale", Viewport{}))
	require.NoError(t, m.GetOrCreateContext(context.Background(), "fresh", Viewport{}))

	time.Sleep(80 * time.Millisecond)
	// Touching a page refreshes the context's last-used time.
	require.NoError(t, m.Navigate(context.Background(), "fresh", "", "https://example.com", NavigateOptions{}))

	reaped := m.CloseIdle()
	assert.Equal(t, []string{"stale"}, reaped)

	status, err := m.Status("")
	require.NoError(t, err)
	require.Len(t, status.Contexts, 1)
	assert.Equal(t, "fresh", status.Contexts[0].Key)
}

func TestStatusUnknownContext(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	_, err := m.Status("ghost")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestStatusSortedAndCheap(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	for _, key := range []string{"charlie", "alice", "bob"} {
		require.NoError(t, m.GetOrCreateContext(context.Background(), key, Viewport{}))
	}

	status, err := m.Status("")
	require.NoError(t, err)
	keys := make([]string, 0, 3)
	for _, c := range status.Contexts {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"alice", "bob", "charlie"}, keys)
}

func TestStatusDuringResize(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	require.NoError(t, m.GetOrCreatePage(context.Background(), "alice", "", Viewport{}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			vp := Viewport{Width: 800 + i, Height: 600 + i}
			assert.NoError(t, m.SetViewportSize(context.Background(), "alice", "", vp))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			status, err := m.Status("alice")
			if !assert.NoError(t, err) {
				return
			}
			assert.Len(t, status.Contexts, 1)
			assert.Len(t, status.Contexts[0].Pages, 1)
		}
	}()
	wg.Wait()

	vp, err := m.ViewportSize("alice", "")
	require.NoError(t, err)
	assert.Equal(t, Viewport{Width: 899, Height: 699}, vp)
}
