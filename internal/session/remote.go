package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/eugeniofciuvasile/ipcc/internal/config"
	"github.com/eugeniofciuvasile/ipcc/internal/device"
	"github.com/eugeniofciuvasile/ipcc/internal/transport"
)

// One-shot operations used by the CLI. They open and close their own
// connection and leave the state machine and registry alone.

// withTransport connects, runs fn and always closes.
func (o *Orchestrator) withTransport(ctx context.Context, creds config.Credentials, fn func(transport.Transport) error) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	t := o.dial(creds)
	if err := t.Connect(ctx); err != nil {
		t.Close()
		return err
	}
	defer t.Close()
	return fn(t)
}

// Probe returns the device hostname and the class it maps to.
func (o *Orchestrator) Probe(ctx context.Context, creds config.Credentials) (string, device.Class, error) {
	var hostname string
	err := o.withTransport(ctx, creds, func(t transport.Transport) error {
		out, err := o.run(ctx, t, "hostname")
		if err != nil {
			return fmt.Errorf("probe hostname: %w", err)
		}
		hostname = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		return "", device.Unknown, err
	}
	return hostname, device.Classify(hostname), nil
}

// DownloadFile reads an arbitrary remote file over SFTP.
func (o *Orchestrator) DownloadFile(ctx context.Context, creds config.Credentials, path string) ([]byte, error) {
	var data []byte
	err := o.withTransport(ctx, creds, func(t transport.Transport) error {
		ctx, cancel := context.WithTimeout(ctx, o.commandTimeout)
		defer cancel()
		var err error
		data, err = t.Download(ctx, path)
		return err
	})
	return data, err
}

// UploadFile writes data to an arbitrary remote path over SFTP.
func (o *Orchestrator) UploadFile(ctx context.Context, creds config.Credentials, path string, data []byte) error {
	job := SaveJob{Path: path, Text: string(data), Creds: creds}
	if err := creds.Validate(); err != nil {
		return err
	}
	if err := o.Upload(ctx, job); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	o.log.Logf("[Push] Uploaded %d bytes to %s", len(data), path)
	return nil
}
