// Package transport defines the connection contract the sync session needs
// from a remote device: connect/disconnect, run a shell command, and move
// bytes to and from a remote path.
package transport

import (
	"context"

	"github.com/eugeniofciuvasile/ipcc/internal/config"
)

// Transport is a single authenticated connection to one host.
//
// Every call is independently fallible. A failed command does not invalidate
// the connection unless the implementation reports a disconnection. No call
// retries on its own.
type Transport interface {
	// Connect establishes the connection. Failures are *ConnectionError.
	Connect(ctx context.Context) error

	// Close tears the connection down. It is safe to call more than once and
	// on a transport that never connected.
	Close() error

	// Run executes cmd and returns its stdout. Failures are *CommandError.
	Run(ctx context.Context, cmd string) (string, error)

	// Upload writes data to path, replacing any existing file.
	// Failures are *TransferError.
	Upload(ctx context.Context, path string, data []byte) error

	// Download returns the full contents of path. Failures are *TransferError.
	Download(ctx context.Context, path string) ([]byte, error)
}

// Dialer builds a fresh, not yet connected Transport for the given credentials.
type Dialer func(creds config.Credentials) Transport
