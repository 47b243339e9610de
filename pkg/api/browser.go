package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/entrhq/outpost/pkg/browser"
)

// browserParams is the superset of parameters browser actions accept.
// Each action reads the fields it needs and ignores the rest.
type browserParams struct {
	Page      string   `json:"page,omitempty"`
	URL       string   `json:"url,omitempty"`
	WaitUntil string   `json:"waitUntil,omitempty"`
	TimeoutMS int      `json:"timeoutMs,omitempty"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	StartX    *float64 `json:"startX,omitempty"`
	StartY    *float64 `json:"startY,omitempty"`
	EndX      *float64 `json:"endX,omitempty"`
	EndY      *float64 `json:"endY,omitempty"`
	Button    string   `json:"button,omitempty"`
	Key       string   `json:"key,omitempty"`
	Text      string   `json:"text,omitempty"`
	DeltaX    float64  `json:"deltaX,omitempty"`
	DeltaY    float64  `json:"deltaY,omitempty"`
	Width     int      `json:"width,omitempty"`
	Height    int      `json:"height,omitempty"`
	Format    string   `json:"format,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
	NewPage   string   `json:"newPage,omitempty"`
}

func (p *browserParams) point() (browser.Point, error) {
	if p.X == nil || p.Y == nil {
		return browser.Point{}, fmt.Errorf("x and y are required")
	}
	return browser.Point{X: *p.X, Y: *p.Y}, nil
}

func (p *browserParams) button() browser.MouseButton {
	if p.Button == "" {
		return browser.ButtonLeft
	}
	return browser.MouseButton(p.Button)
}

func (s *Server) handleBrowserAction(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	req, err := decodeAction(r)
	if err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Action == "" {
		badRequest(w, "action is required")
		return
	}

	var params browserParams
	if err := decodeParams(req.Params, &params); err != nil {
		badRequest(w, "invalid params: "+err.Error())
		return
	}

	ctx := r.Context()
	m := s.browser

	switch req.Action {
	case "init":
		if err := m.EnsureStarted(ctx); err != nil {
			failed(w, err)
			return
		}
		vp := browser.Viewport{Width: params.Width, Height: params.Height}
		if err := m.GetOrCreateContext(ctx, user, vp); err != nil {
			failed(w, err)
			return
		}
		ok(w, "browser context ready", nil)

	case "cleanup":
		if err := m.CloseAll(); err != nil {
			failed(w, err)
			return
		}
		ok(w, "browser shut down", nil)

	case "closeUserContext":
		if err := m.CloseContext(user); err != nil {
			failed(w, err)
			return
		}
		ok(w, "context closed", nil)

	case "goto":
		if params.URL == "" {
			failed(w, fmt.Errorf("url is required"))
			return
		}
		opts := browser.NavigateOptions{WaitUntil: browser.WaitUntil(params.WaitUntil)}
		if params.TimeoutMS > 0 {
			opts.Timeout = time.Duration(params.TimeoutMS) * time.Millisecond
		}
		if err := m.Navigate(ctx, user, params.Page, params.URL, opts); err != nil {
			failed(w, err)
			return
		}
		ok(w, "navigated", nil)

	case "goBack":
		if err := m.GoBack(ctx, user, params.Page); err != nil {
			failed(w, err)
			return
		}
		ok(w, "went back", nil)

	case "goForward":
		if err := m.GoForward(ctx, user, params.Page); err != nil {
			failed(w, err)
			return
		}
		ok(w, "went forward", nil)

	case "screenshot":
		shot, err := m.Screenshot(ctx, user, params.Page)
		if err != nil {
			failed(w, err)
			return
		}
		ok(w, "", map[string]interface{}{
			"image":    base64.StdEncoding.EncodeToString(shot.Data),
			"width":    shot.Viewport.Width,
			"height":   shot.Viewport.Height,
			"encoding": "base64/png",
		})

	case "extractContent":
		content, err := m.ExtractContent(ctx, user, params.Page, browser.ExtractOptions{
			Format:    browser.ExtractFormat(params.Format),
			MaxLength: params.MaxLength,
		})
		if err != nil {
			failed(w, err)
			return
		}
		ok(w, "", map[string]interface{}{"content": content})

	case "click", "doubleClick":
		pos, err := params.point()
		if err != nil {
			failed(w, err)
			return
		}
		var action browser.Action = browser.Click{Pos: pos, Button: params.button()}
		if req.Action == "doubleClick" {
			action = browser.DoubleClick{Pos: pos, Button: params.button()}
		}
		s.browserInput(w, ctx, user, params.Page, action)

	case "mouseMove":
		pos, err := params.point()
		if err != nil {
			failed(w, err)
			return
		}
		s.browserInput(w, ctx, user, params.Page, browser.Move{Pos: pos})

	case "mouseDown":
		s.browserInput(w, ctx, user, params.Page, browser.Down{Button: params.button()})

	case "mouseUp":
		s.browserInput(w, ctx, user, params.Page, browser.Up{Button: params.button()})

	case "pressKey":
		s.browserInput(w, ctx, user, params.Page, browser.KeyPress{Key: params.Key})

	case "typeText":
		s.browserInput(w, ctx, user, params.Page, browser.TypeText{Text: params.Text})

	case "scroll":
		s.browserInput(w, ctx, user, params.Page, browser.Scroll{DeltaX: params.DeltaX, DeltaY: params.DeltaY})

	case "drag":
		if params.StartX == nil || params.StartY == nil || params.EndX == nil || params.EndY == nil {
			failed(w, fmt.Errorf("startX, startY, endX, and endY are required"))
			return
		}
		start := browser.Point{X: *params.StartX, Y: *params.StartY}
		end := browser.Point{X: *params.EndX, Y: *params.EndY}
		if err := m.Drag(ctx, user, params.Page, start, end, params.button()); err != nil {
			failed(w, err)
			return
		}
		ok(w, "dragged", nil)

	case "getViewportSize":
		vp, err := m.ViewportSize(user, params.Page)
		if err != nil {
			failed(w, err)
			return
		}
		ok(w, "", map[string]interface{}{"width": vp.Width, "height": vp.Height})

	case "setViewportSize":
		vp := browser.Viewport{Width: params.Width, Height: params.Height}
		if err := m.SetViewportSize(ctx, user, params.Page, vp); err != nil {
			failed(w, err)
			return
		}
		ok(w, "viewport updated", nil)

	case "getCookies":
		cookies, err := m.Cookies(ctx, user, params.URL)
		if err != nil {
			failed(w, err)
			return
		}
		ok(w, "", map[string]interface{}{"cookies": cookies})

	case "getStatus":
		status, err := m.Status(user)
		if err != nil {
			failed(w, err)
			return
		}
		ok(w, "", status)

	case "createPage":
		if err := m.GetOrCreatePage(ctx, user, params.Page, browser.Viewport{Width: params.Width, Height: params.Height}); err != nil {
			failed(w, err)
			return
		}
		ok(w, "page ready", nil)

	case "deletePage":
		if err := m.DeletePage(user, params.Page); err != nil {
			failed(w, err)
			return
		}
		ok(w, "page deleted", nil)

	case "renamePage":
		if params.NewPage == "" {
			failed(w, fmt.Errorf("newPage is required"))
			return
		}
		if err := m.RenamePage(user, params.Page, params.NewPage); err != nil {
			failed(w, err)
			return
		}
		ok(w, "page renamed", nil)

	default:
		failed(w, fmt.Errorf("unknown browser action %q", req.Action))
	}
}

func (s *Server) browserInput(w http.ResponseWriter, ctx context.Context, user, page string, action browser.Action) {
	if err := s.browser.Input(ctx, user, page, action); err != nil {
		failed(w, err)
		return
	}
	ok(w, "input applied", nil)
}
