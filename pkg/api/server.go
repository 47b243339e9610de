// Package api is the HTTP boundary of the service. It implements the
// action-dispatch convention shared by every caller: a request carries
// an action name plus an action-specific parameter bag, and the
// response is always an envelope with a success flag. Callers branch on
// success, never on error types.
//
// Identity is caller-supplied: the user id in the URL scopes every
// browser and terminal request. The boundary performs no
// authentication of its own.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/entrhq/outpost/pkg/browser"
	"github.com/entrhq/outpost/pkg/llm"
	"github.com/entrhq/outpost/pkg/logging"
	"github.com/entrhq/outpost/pkg/terminal"
	"github.com/entrhq/outpost/pkg/tools"
)

// Server wires the session managers and registries to HTTP routes.
type Server struct {
	browser  *browser.Manager
	terminal *terminal.Manager
	models   *llm.Registry
	tools    *tools.Registry
	log      *logging.Logger
}

// NewServer creates a server over explicitly constructed dependencies.
func NewServer(b *browser.Manager, t *terminal.Manager, models *llm.Registry, toolReg *tools.Registry, log *logging.Logger) *Server {
	return &Server{browser: b, terminal: t, models: models, tools: toolReg, log: log}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/models", s.handleModels).Methods(http.MethodGet)
	r.HandleFunc("/v1/tools", s.handleTools).Methods(http.MethodGet)
	r.HandleFunc("/v1/browser/{user}", s.handleBrowserAction).Methods(http.MethodPost)
	r.HandleFunc("/v1/terminal/{user}", s.handleTerminalAction).Methods(http.MethodPost)

	r.Use(s.requestLogMiddleware)
	return r
}

// ActionRequest is the uniform dispatch envelope for browser and
// terminal requests.
type ActionRequest struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the uniform reply envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// ok writes a successful envelope.
func ok(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: data})
}

// failed writes an action failure. The status stays 200: failure is a
// result in this convention, and callers branch on the success flag.
func failed(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, Response{Success: false, Message: err.Error()})
}

// badRequest is reserved for requests that never reached an action:
// unparseable JSON or a missing action name.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ok(w, "ok", nil)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	browserStatus, err := s.browser.Status("")
	if err != nil {
		failed(w, err)
		return
	}
	ok(w, "", map[string]interface{}{
		"browser":  browserStatus,
		"terminal": s.terminal.StatusAll(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	ok(w, "", map[string]interface{}{"models": s.models.Keys()})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	type toolInfo struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Schema      map[string]interface{} `json:"schema"`
	}
	visible := s.tools.ListVisible()
	infos := make([]toolInfo, 0, len(visible))
	for _, t := range visible {
		infos = append(infos, toolInfo{Name: t.Name(), Description: t.Description(), Schema: t.Schema()})
	}
	ok(w, "", map[string]interface{}{"tools": infos})
}

// requestLogMiddleware tags each request with an id and logs it.
func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-Id", id)
		s.log.Debugf("[%s] %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func decodeAction(r *http.Request) (*ActionRequest, error) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
