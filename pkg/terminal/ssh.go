package terminal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSHDialer implements Dialer over SSH with SFTP for file transfer.
type SSHDialer struct {
	// ConnectTimeout bounds the TCP and handshake phase of Dial.
	ConnectTimeout time.Duration
}

// NewSSHDialer creates the production dialer.
func NewSSHDialer() *SSHDialer {
	return &SSHDialer{ConnectTimeout: 15 * time.Second}
}

// Dial connects and authenticates. Password and private-key auth are
// supported; the key path is read here so a bad path fails at
// initialize time, not at first command.
func (d *SSHDialer) Dial(ctx context.Context, creds Credentials) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var auth []ssh.AuthMethod
	if creds.Password != "" {
		auth = append(auth, ssh.Password(creds.Password))
	}
	if creds.PrivateKeyPath != "" {
		key, err := os.ReadFile(creds.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: reading private key: %v", ErrAuthentication, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing private key: %v", ErrAuthentication, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	port := creds.Port
	if port == 0 {
		port = 22
	}

	config := &ssh.ClientConfig{
		User: creds.Username,
		Auth: auth,
		// Sessions are provisioned against hosts the service itself
		// manages; host keys are not pinned.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.ConnectTimeout,
	}

	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", creds.Host, port), config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return &sshConn{client: client}, nil
}

type sshConn struct {
	client *ssh.Client
}

func (c *sshConn) Run(ctx context.Context, command string, timeout time.Duration) (string, string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("opening session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if timeout <= 0 {
		err := session.Run(command)
		return stdout.String(), stderr.String(), err
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	// A caller-side abort does not cancel the remote command: in-flight
	// work runs to completion and only the hard timeout interrupts it.
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return stdout.String(), stderr.String(), err
	case <-timer.C:
		_ = session.Close()
		return stdout.String(), stderr.String(), fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

func (c *sshConn) ReadFile(path string) ([]byte, error) {
	client, err := sftp.NewClient(c.client)
	if err != nil {
		return nil, fmt.Errorf("%w: opening sftp: %v", ErrRemoteIO, err)
	}
	defer client.Close()

	f, err := client.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrRemoteIO, path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrRemoteIO, path, err)
	}
	return data, nil
}

func (c *sshConn) WriteFile(path string, data []byte) error {
	client, err := sftp.NewClient(c.client)
	if err != nil {
		return fmt.Errorf("%w: opening sftp: %v", ErrRemoteIO, err)
	}
	defer client.Close()

	f, err := client.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrRemoteIO, path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrRemoteIO, path, err)
	}
	return nil
}

func (c *sshConn) Close() error {
	return c.client.Close()
}
