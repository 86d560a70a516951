package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/eugeniofciuvasile/ipcc/internal/config"
	"github.com/eugeniofciuvasile/ipcc/internal/transport"
	"github.com/eugeniofciuvasile/ipcc/pkg/sshutil"
)

var errNotConnected = errors.New("SSH client not connected")

// Client is a transport.Transport over one SSH connection. SFTP is opened
// on the same connection the first time a file is moved.
type Client struct {
	creds    config.Credentials
	settings config.Settings

	mu     sync.Mutex
	conn   *ssh.Client
	sftp   *sftpSession
	closed bool
}

var _ transport.Transport = (*Client)(nil)

// NewClient returns an unconnected client.
func NewClient(creds config.Credentials, settings config.Settings) *Client {
	if creds.Port == 0 {
		creds.Port = settings.Port
	}
	return &Client{creds: creds, settings: settings}
}

// Dialer returns a transport.Dialer producing SSH clients with settings.
func Dialer(settings config.Settings) transport.Dialer {
	return func(creds config.Credentials) transport.Transport {
		return NewClient(creds, settings)
	}
}

// Connect dials and authenticates. The dial timeout bounds both the TCP
// connect and the SSH handshake.
func (c *Client) Connect(ctx context.Context) error {
	addr := c.creds.Address()
	log.Printf("[NewClient] Starting connection for user=%s addr=%s", c.creds.Username, addr)

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	authMethods, err := sshutil.GetAuthMethods(c.creds.Password)
	if err != nil {
		return &transport.ConnectionError{Host: addr, Err: err}
	}
	hostKeyCallback, err := sshutil.GetHostKeyCallback(c.settings.KnownHostsFile)
	if err != nil {
		return &transport.ConnectionError{Host: addr, Err: err}
	}
	if c.settings.KnownHostsFile == "" {
		log.Printf("[NewClient] No known_hosts file configured, host key of %s is not verified", addr)
	}

	timeout := c.settings.DialTimeout
	if timeout <= 0 {
		timeout = config.DefaultDialTimeout
	}
	sshConfig := &ssh.ClientConfig{
		User:            c.creds.Username,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	dialer := net.Dialer{Timeout: timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.Printf("[NewClient] Failed to connect to SSH server %s: %v", addr, err)
		return &transport.ConnectionError{Host: addr, Err: err}
	}

	// The handshake has no context of its own; a deadline and closing the
	// socket on cancellation stand in for one.
	_ = netConn.SetDeadline(time.Now().Add(timeout))
	stop := context.AfterFunc(ctx, func() { netConn.Close() })
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, sshConfig)
	stopped := stop()
	if err != nil {
		netConn.Close()
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		log.Printf("[NewClient] SSH handshake with %s failed: %v", addr, err)
		return &transport.ConnectionError{Host: addr, Err: err}
	}
	if !stopped {
		sshConn.Close()
		return &transport.ConnectionError{Host: addr, Err: ctx.Err()}
	}
	_ = netConn.SetDeadline(time.Time{})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = ssh.NewClient(sshConn, chans, reqs)
	c.closed = false
	log.Printf("[NewClient] Successfully connected to %s", addr)
	return nil
}

// Close closes SFTP and the SSH connection. It is safe to call repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		c.closed = true
		return nil
	}
	c.closed = true

	var err error
	if c.sftp != nil {
		err = c.sftp.Close()
		c.sftp = nil
	}
	if closeErr := c.conn.Close(); closeErr != nil && err == nil && !errors.Is(closeErr, net.ErrClosed) {
		err = closeErr
	}
	c.conn = nil
	return err
}

func (c *Client) client() (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, errNotConnected
	}
	return c.conn, nil
}

// Run executes cmd in a new session and returns stdout. When ctx ends first
// the session is closed and the context error is returned.
func (c *Client) Run(ctx context.Context, cmd string) (string, error) {
	conn, err := c.client()
	if err != nil {
		return "", &transport.CommandError{Cmd: cmd, ExitCode: -1, Err: err}
	}

	session, err := conn.NewSession()
	if err != nil {
		return "", &transport.CommandError{Cmd: cmd, ExitCode: -1, Err: fmt.Errorf("failed to open session: %w", err)}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		session.Close()
		<-done
		return "", &transport.CommandError{Cmd: cmd, ExitCode: -1, Err: ctx.Err()}
	}

	if err != nil {
		exitCode := -1
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitStatus()
		}
		return "", &transport.CommandError{
			Cmd:      cmd,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return stdout.String(), nil
}
