package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eugeniofciuvasile/ipcc/internal/config"
)

// ErrNotConnected is returned by a Fake connection used before Connect.
var ErrNotConnected = errors.New("not connected")

// FakeDevice is an in-memory device that hands out Transports backed by a
// shared file table. It records every command and upload so tests can assert
// on what went over the wire. It also backs the CLI demo mode.
type FakeDevice struct {
	mu sync.Mutex

	Hostname string
	Files    map[string]string

	// CommandErrors fails the exact command string with the given error.
	CommandErrors map[string]error
	// UploadErrors fails uploads to the given path.
	UploadErrors map[string]error
	// ConnectErr fails every Connect when set.
	ConnectErr error

	dials    int
	closes   int
	open     int
	commands []string
	uploads  []string
}

// NewFakeDevice returns a device with the given hostname and no files.
func NewFakeDevice(hostname string) *FakeDevice {
	return &FakeDevice{
		Hostname:      hostname,
		Files:         map[string]string{},
		CommandErrors: map[string]error{},
		UploadErrors:  map[string]error{},
	}
}

// Dialer returns a Dialer producing connections to this device.
func (d *FakeDevice) Dialer() Dialer {
	return func(creds config.Credentials) Transport {
		d.mu.Lock()
		d.dials++
		d.mu.Unlock()
		return &fakeConn{dev: d, host: creds.Host}
	}
}

// SetFile replaces the contents of path.
func (d *FakeDevice) SetFile(path, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Files[path] = content
}

// File returns the contents of path.
func (d *FakeDevice) File(path string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	content, ok := d.Files[path]
	return content, ok
}

// Commands returns every command run so far, in order.
func (d *FakeDevice) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// Uploads returns the paths of every successful upload, in order.
func (d *FakeDevice) Uploads() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.uploads...)
}

// Dials returns how many transports were created.
func (d *FakeDevice) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// OpenConnections returns how many connections are connected and not closed.
func (d *FakeDevice) OpenConnections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

type fakeConn struct {
	dev       *FakeDevice
	host      string
	connected bool
}

func (c *fakeConn) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &ConnectionError{Host: c.host, Err: err}
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.dev.ConnectErr != nil {
		return &ConnectionError{Host: c.host, Err: c.dev.ConnectErr}
	}
	c.connected = true
	c.dev.open++
	return nil
}

func (c *fakeConn) Close() error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.connected {
		c.connected = false
		c.dev.open--
		c.dev.closes++
	}
	return nil
}

func (c *fakeConn) Run(ctx context.Context, cmd string) (string, error) {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if !c.connected {
		return "", &CommandError{Cmd: cmd, ExitCode: -1, Err: ErrNotConnected}
	}
	c.dev.commands = append(c.dev.commands, cmd)
	if err := ctx.Err(); err != nil {
		return "", &CommandError{Cmd: cmd, ExitCode: -1, Err: err}
	}
	if err, ok := c.dev.CommandErrors[cmd]; ok {
		return "", &CommandError{Cmd: cmd, ExitCode: 1, Err: err}
	}

	switch {
	case cmd == "hostname":
		return c.dev.Hostname + "\n", nil
	case strings.HasPrefix(cmd, "cat "):
		path := strings.Trim(strings.TrimPrefix(cmd, "cat "), "'")
		content, ok := c.dev.Files[path]
		if !ok {
			return "", &CommandError{
				Cmd:      cmd,
				ExitCode: 1,
				Stderr:   fmt.Sprintf("cat: can't open '%s': No such file or directory", path),
				Err:      errors.New("exit status 1"),
			}
		}
		return content, nil
	}
	return "", &CommandError{Cmd: cmd, ExitCode: 127, Err: errors.New("command not found")}
}

func (c *fakeConn) Upload(ctx context.Context, path string, data []byte) error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if !c.connected {
		return &TransferError{Op: "upload", Path: path, Err: ErrNotConnected}
	}
	if err := ctx.Err(); err != nil {
		return &TransferError{Op: "upload", Path: path, Err: err}
	}
	if err, ok := c.dev.UploadErrors[path]; ok {
		return &TransferError{Op: "upload", Path: path, Err: err}
	}
	c.dev.Files[path] = string(data)
	c.dev.uploads = append(c.dev.uploads, path)
	return nil
}

func (c *fakeConn) Download(ctx context.Context, path string) ([]byte, error) {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if !c.connected {
		return nil, &TransferError{Op: "download", Path: path, Err: ErrNotConnected}
	}
	if err := ctx.Err(); err != nil {
		return nil, &TransferError{Op: "download", Path: path, Err: err}
	}
	content, ok := c.dev.Files[path]
	if !ok {
		return nil, &TransferError{Op: "download", Path: path, Err: errors.New("file does not exist")}
	}
	return []byte(content), nil
}
