package terminal

import (
	"context"
	"time"
)

// Credentials identify and authenticate a remote shell endpoint. Either
// Password or PrivateKeyPath must be set.
type Credentials struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
	PrivateKeyPath string `json:"privateKeyPath,omitempty"`
}

// Valid reports whether the credentials carry enough to attempt a
// connection.
func (c Credentials) Valid() bool {
	return c.Host != "" && c.Username != "" && (c.Password != "" || c.PrivateKeyPath != "")
}

// Dialer establishes remote shell connections. The production
// implementation is SSHDialer; tests substitute a fake.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Conn, error)
}

// Conn is one live remote shell connection.
type Conn interface {
	// Run executes a command and captures its output. A non-zero exit
	// status is reported through exitErr with stdout and stderr still
	// populated; transport failures are reported the same way but with
	// no output.
	Run(ctx context.Context, command string, timeout time.Duration) (stdout, stderr string, exitErr error)

	// ReadFile returns the contents of a remote file. Not-found is
	// reported as an error matching ErrFileNotFound.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the contents of a remote file, creating it if
	// needed.
	WriteFile(path string, data []byte) error

	Close() error
}
