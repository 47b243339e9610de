package terminal

import "errors"

var (
	// ErrNotConnected is returned for operations on a user id with no
	// live session.
	ErrNotConnected = errors.New("no terminal session for user")

	// ErrAuthentication is returned when credentials are missing or the
	// remote end rejects them.
	ErrAuthentication = errors.New("authentication failed")

	// ErrFileNotFound is returned when a remote file does not exist.
	ErrFileNotFound = errors.New("remote file not found")

	// ErrRemoteIO wraps remote file failures other than not-found.
	ErrRemoteIO = errors.New("remote i/o error")

	// ErrCommandRejected is returned when the command whitelist is
	// enabled and the command matches no allowed pattern.
	ErrCommandRejected = errors.New("command rejected by whitelist")

	// ErrInvalidCommand is returned when a command is rejected before
	// reaching the remote host, e.g. an empty command line.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrTooManySessions is returned when connecting would exceed the
	// configured session cap.
	ErrTooManySessions = errors.New("maximum number of terminal sessions reached")

	// ErrTimeout is returned when a command exceeds its execution window.
	ErrTimeout = errors.New("command timed out")
)
