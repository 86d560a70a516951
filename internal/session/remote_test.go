package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugeniofciuvasile/ipcc/internal/device"
	"github.com/eugeniofciuvasile/ipcc/internal/transport"
)

func TestProbe(t *testing.T) {
	dev := boardDevice()
	o := newOrchestrator(dev)

	hostname, class, err := o.Probe(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "radxa-zero3", hostname)
	assert.Equal(t, device.CompanionBoard, class)
	assert.Equal(t, Idle, o.State(), "one-shot operations leave the state machine alone")
	assert.Equal(t, 0, dev.OpenConnections())
}

func TestDownloadAndUploadFile(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)

	data, err := o.DownloadFile(context.Background(), creds, "/etc/wfb.conf")
	require.NoError(t, err)
	assert.Equal(t, "channel=161\nbandwidth=20\n", string(data))

	require.NoError(t, o.UploadFile(context.Background(), creds, "/etc/wfb.conf", []byte("channel=165\n")))
	content, _ := dev.File("/etc/wfb.conf")
	assert.Equal(t, "channel=165\n", content)

	_, err = o.DownloadFile(context.Background(), creds, "/missing")
	var transferErr *transport.TransferError
	assert.ErrorAs(t, err, &transferErr)
	assert.Equal(t, 0, dev.OpenConnections())
	assert.Equal(t, 0, o.Registry().Len())
}
