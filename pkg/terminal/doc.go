// Package terminal multiplexes per-user remote shell sessions over SSH.
//
// The Manager owns one persistent connection per user id. Commands are
// executed statelessly: the remote shell is never trusted to remember
// directory state, so every command is prefixed with a change into the
// session's virtual working directory. The virtual directory itself is
// maintained client-side with plain path arithmetic and is only
// validated against the remote host when the next command runs.
//
// Every executed command, successful or not, is recorded in a bounded
// per-session command log; the oldest entries are evicted first.
//
// File transfer goes through SFTP. "File does not exist" is reported
// distinctly from other I/O failures so callers can special-case files
// that have not been created yet, such as a dev server log.
package terminal
