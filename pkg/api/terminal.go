package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/entrhq/outpost/pkg/terminal"
)

// terminalParams is the superset of parameters terminal actions accept.
type terminalParams struct {
	Host           string `json:"host,omitempty"`
	Port           int    `json:"port,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	PrivateKeyPath string `json:"privateKeyPath,omitempty"`
	Command        string `json:"command,omitempty"`
	Path           string `json:"path,omitempty"`
	Content        string `json:"content,omitempty"`
}

func (s *Server) handleTerminalAction(w http.ResponseWriter, r *http.Request) {
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

	var params terminalParams
	if err := decodeParams(req.Params, &params); err != nil {
		badRequest(w, "invalid params: "+err.Error())
		return
	}

	ctx := r.Context()
	m := s.terminal

	switch req.Action {
	case "initialize":
		creds := terminal.Credentials{
			Host:           params.Host,
			Port:           params.Port,
			Username:       params.Username,
			Password:       params.Password,
			PrivateKeyPath: params.PrivateKeyPath,
		}
		if err := m.Initialize(ctx, user, creds); err != nil {
			failed(w, err)
			return
		}
		ok(w, "terminal session established", nil)

	case "disconnect":
		if err := m.Disconnect(user); err != nil {
			failed(w, err)
			return
		}
		ok(w, "disconnected", nil)

	case "execute":
		result, err := m.Execute(ctx, user, params.Command)
		if err != nil {
			failed(w, err)
			return
		}
		// A non-zero exit is a successful dispatch; the command outcome
		// rides in the data payload.
		ok(w, "", result)

	case "changeDirectory":
		cwd, err := m.ChangeDirectory(user, params.Path)
		if err != nil {
			failed(w, err)
			return
		}
		ok(w, "", map[string]interface{}{"cwd": cwd})

	case "readFile":
		if params.Path == "" {
			failed(w, fmt.Errorf("path is required"))
			return
		}
		data, err := m.ReadFile(ctx, user, params.Path)
		if err != nil {
			failed(w, err)
			return
		}
		ok(w, "", map[string]interface{}{"content": string(data)})

	case "editFile":
		if params.Path == "" {
			failed(w, fmt.Errorf("path is required"))
			return
		}
		if err := m.WriteFile(ctx, user, params.Path, []byte(params.Content)); err != nil {
			failed(w, err)
			return
		}
		ok(w, fmt.Sprintf("wrote %d bytes", len(params.Content)), nil)

	case "getCommandLog":
		ok(w, "", map[string]interface{}{"entries": m.CommandLog(user)})

	case "getStatus":
		ok(w, "", m.Status(user))

	default:
		failed(w, fmt.Errorf("unknown terminal action %q", req.Action))
	}
}
