package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/sftp"

	"github.com/eugeniofciuvasile/ipcc/internal/transport"
)

// sftpSession is the SFTP subsystem opened over a Client's connection.
type sftpSession struct {
	client *sftp.Client
}

func (s *sftpSession) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// sftpClient returns the SFTP session, opening it on first use.
func (c *Client) sftpClient() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, errNotConnected
	}
	if c.sftp != nil {
		return c.sftp.client, nil
	}
	client, err := sftp.NewClient(c.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}
	c.sftp = &sftpSession{client: client}
	return client, nil
}

// transfer runs fn and gives up when ctx ends first. SFTP calls take no
// context, so cancellation tears the SFTP session down to unblock fn.
func (c *Client) transfer(ctx context.Context, fn func(*sftp.Client) error) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn(client) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		c.mu.Lock()
		if c.sftp != nil && c.sftp.client == client {
			c.sftp = nil
		}
		c.mu.Unlock()
		client.Close()
		<-done
		return ctx.Err()
	}
}

// Upload writes data to path, creating or truncating it. The mode of an
// existing file is kept.
func (c *Client) Upload(ctx context.Context, path string, data []byte) error {
	err := c.transfer(ctx, func(client *sftp.Client) error {
		remoteFile, err := client.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
		if err != nil {
			return fmt.Errorf("failed to create remote file: %w", err)
		}
		if _, err := io.Copy(remoteFile, bytes.NewReader(data)); err != nil {
			remoteFile.Close()
			return fmt.Errorf("failed to upload file: %w", err)
		}
		return remoteFile.Close()
	})
	if err != nil {
		log.Printf("[Upload] %s: %v", path, err)
		return &transport.TransferError{Op: "upload", Path: path, Err: err}
	}
	log.Printf("[Upload] Wrote %d bytes to %s", len(data), path)
	return nil
}

// Download returns the contents of path.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := c.transfer(ctx, func(client *sftp.Client) error {
		remoteFile, err := client.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open remote file: %w", err)
		}
		defer remoteFile.Close()

		data, err = io.ReadAll(remoteFile)
		if err != nil {
			return fmt.Errorf("failed to download file: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Printf("[Download] %s: %v", path, err)
		return nil, &transport.TransferError{Op: "download", Path: path, Err: err}
	}
	return data, nil
}
