package terminal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/entrhq/outpost/pkg/logging"
)

// Config controls manager-wide defaults.
type Config struct {
	// DefaultDir is the virtual working directory each session starts in.
	DefaultDir string

	// CommandTimeout bounds each command execution.
	CommandTimeout time.Duration

	// LogCapacity is the per-session command log size.
	LogCapacity int

	// MaxSessions caps the number of live sessions.
	MaxSessions int
}

const (
	DefaultDir            = "/home"
	DefaultCommandTimeout = 60 * time.Second
	DefaultMaxSessions    = 20
)

func (c *Config) applyDefaults() {
	if c.DefaultDir == "" {
		c.DefaultDir = DefaultDir
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.LogCapacity <= 0 {
		c.LogCapacity = DefaultLogCapacity
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}
}

// ExecResult is the outcome of one command execution. A non-zero exit
// status is a result, not an error: Success is false and the captured
// output is still returned.
type ExecResult struct {
	Success bool   `json:"success"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
}

// SessionStatus is a snapshot of one user's session.
type SessionStatus struct {
	UserID      string    `json:"userId"`
	Connected   bool      `json:"connected"`
	Cwd         string    `json:"cwd,omitempty"`
	Host        string    `json:"host,omitempty"`
	ConnectedAt time.Time `json:"connectedAt,omitzero"`
	LastUsedAt  time.Time `json:"lastUsedAt,omitzero"`
}

// Manager owns one remote shell session per user id. One instance
// serves all concurrent request handlers.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	dialer   Dialer
	cfg      Config
	allow    func(command string) bool
	log      *logging.Logger
}

// session state is guarded by its own mutex, which also serializes
// command execution per user.
type session struct {
	userID      string
	conn        Conn
	host        string
	connectedAt time.Time

	mu       sync.Mutex
	cwd      string
	clog     *commandLog
	lastUsed time.Time
}

// NewManager creates a manager using the given dialer. Pass
// NewSSHDialer() in production. allow, when non-nil, gates Execute;
// a nil allow admits every command.
func NewManager(dialer Dialer, cfg Config, allow func(command string) bool, log *logging.Logger) *Manager {
	cfg.applyDefaults()
	return &Manager{
		sessions: make(map[string]*session),
		dialer:   dialer,
		cfg:      cfg,
		allow:    allow,
		log:      log,
	}
}

// Initialize establishes (or re-establishes) the session for userID.
// An existing connection for the same user is torn down after the new
// one is in place, so a failed reconnect leaves the old session intact
// only if dialing fails before the swap. The virtual working directory
// is reset to the configured default.
func (m *Manager) Initialize(ctx context.Context, userID string, creds Credentials) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrNotConnected)
	}
	if !creds.Valid() {
		return fmt.Errorf("%w: host, username, and a password or private key path are required", ErrAuthentication)
	}

	conn, err := m.dialer.Dial(ctx, creds)
	if err != nil {
		return err
	}

	now := time.Now()
	next := &session{
		userID:      userID,
		conn:        conn,
		host:        creds.Host,
		connectedAt: now,
		cwd:         m.cfg.DefaultDir,
		clog:        newCommandLog(m.cfg.LogCapacity),
		lastUsed:    now,
	}

	m.mu.Lock()
	old := m.sessions[userID]
	if old == nil && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("%w (%d)", ErrTooManySessions, m.cfg.MaxSessions)
	}
	m.sessions[userID] = next
	m.mu.Unlock()

	if old != nil {
		if err := old.conn.Close(); err != nil {
			m.log.Warnf("closing previous session for %q: %v", userID, err)
		}
	}
	m.log.Infof("terminal session connected for %q (%s@%s)", userID, creds.Username, creds.Host)
	return nil
}

// IsConnected reports whether a live session exists for userID. It
// consults in-memory state only and never blocks on the network.
func (m *Manager) IsConnected(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[userID]
	return ok
}

func (m *Manager) get(userID string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotConnected, userID)
	}
	return s, nil
}

// Execute runs command in the session's virtual working directory. The
// remote shell is not trusted to remember cd state, so the command is
// self-contained: "cd <dir> && <command>". Every invocation, success or
// failure, appends one entry to the session's command log.
func (m *Manager) Execute(ctx context.Context, userID, command string) (*ExecResult, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("%w: command is empty", ErrInvalidCommand)
	}
	s, err := m.get(userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	if m.allow != nil && !m.allow(command) {
		s.clog.append(LogEntry{
			Time:    time.Now(),
			Command: command,
			Success: false,
			Stderr:  "command rejected by whitelist",
		})
		return nil, fmt.Errorf("%w: %s", ErrCommandRejected, command)
	}

	full := fmt.Sprintf("cd %s && %s", quoteArg(s.cwd), command)
	stdout, stderr, exitErr := s.conn.Run(ctx, full, m.cfg.CommandTimeout)

	result := &ExecResult{
		Success: exitErr == nil,
		Stdout:  stdout,
		Stderr:  stderr,
	}
	if exitErr != nil && result.Stderr == "" {
		result.Stderr = exitErr.Error()
	}

	s.clog.append(LogEntry{
		Time:    time.Now(),
		Command: command,
		Success: result.Success,
		Stdout:  result.Stdout,
		Stderr:  result.Stderr,
	})
	return result, nil
}

// ChangeDirectory updates the session's virtual working directory and
// returns the new value. The path is not verified against the remote
// host; a bad directory surfaces on the next Execute.
func (m *Manager) ChangeDirectory(userID, target string) (string, error) {
	s, err := m.get(userID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cwd = resolvePath(s.cwd, target)
	s.lastUsed = time.Now()
	return s.cwd, nil
}

// Cwd returns the session's current virtual working directory.
func (m *Manager) Cwd(userID string) (string, error) {
	s, err := m.get(userID)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd, nil
}

// ReadFile returns the contents of a remote file. Relative paths are
// resolved against the session's virtual working directory.
func (m *Manager) ReadFile(ctx context.Context, userID, path string) ([]byte, error) {
	s, err := m.get(userID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.conn.ReadFile(s.resolve(path))
}

// WriteFile replaces the contents of a remote file.
func (m *Manager) WriteFile(ctx context.Context, userID, path string, data []byte) error {
	s, err := m.get(userID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.conn.WriteFile(s.resolve(path), data)
}

func (s *session) resolve(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return resolvePath(s.cwd, path)
}

// Disconnect closes and removes the session for userID. Idempotent: a
// missing session is a no-op.
func (m *Manager) Disconnect(userID string) error {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if err := s.conn.Close(); err != nil {
		m.log.Warnf("disconnecting %q: %v", userID, err)
		return err
	}
	m.log.Infof("terminal session disconnected for %q", userID)
	return nil
}

// CommandLog returns the session's command log oldest-first, or an
// empty slice when no session exists.
func (m *Manager) CommandLog(userID string) []LogEntry {
	s, err := m.get(userID)
	if err != nil {
		return []LogEntry{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clog.snapshot()
}

// Status returns one user's session snapshot. An unknown user is
// reported as disconnected, not as an error.
func (m *Manager) Status(userID string) SessionStatus {
	s, err := m.get(userID)
	if err != nil {
		return SessionStatus{UserID: userID, Connected: false}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatus{
		UserID:      s.userID,
		Connected:   true,
		Cwd:         s.cwd,
		Host:        s.host,
		ConnectedAt: s.connectedAt,
		LastUsedAt:  s.lastUsed,
	}
}

// StatusAll returns snapshots for every live session, sorted by user id.
func (m *Manager) StatusAll() []SessionStatus {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	out := make([]SessionStatus, 0, len(ids))
	for _, id := range ids {
		st := m.Status(id)
		if st.Connected {
			out = append(out, st)
		}
	}
	return out
}

// CloseAll disconnects every session. Cleanup is best-effort: each
// session is closed regardless of failures in the others, and the first
// failure, if any, is returned after all sessions have been attempted.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, s := range sessions {
		s := s
		g.Go(func() error {
			if err := s.conn.Close(); err != nil {
				m.log.Warnf("closing session for %q: %v", s.userID, err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// quoteArg single-quotes a shell argument, escaping embedded quotes.
func quoteArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
