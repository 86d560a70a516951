package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugeniofciuvasile/ipcc/internal/codec"
	"github.com/eugeniofciuvasile/ipcc/internal/config"
	"github.com/eugeniofciuvasile/ipcc/internal/device"
	"github.com/eugeniofciuvasile/ipcc/internal/registry"
	"github.com/eugeniofciuvasile/ipcc/internal/transport"
)

var creds = config.Credentials{Host: "192.168.1.10", Username: "root", Password: "12345"}

const majesticYAML = "system:\n  webPort: 80\nvideo0:\n  codec: h265\n  fps: 90\n"

func cameraDevice() *transport.FakeDevice {
	dev := transport.NewFakeDevice("openipc-ssc338q")
	dev.SetFile("/etc/wfb.conf", "channel=161\nbandwidth=20\n")
	dev.SetFile("/etc/majestic.yaml", majesticYAML)
	dev.SetFile("/etc/telemetry.conf", "serial=/dev/ttyS2\nbaud=115200\n")
	return dev
}

func boardDevice() *transport.FakeDevice {
	dev := transport.NewFakeDevice("radxa-zero3")
	dev.SetFile("/config/stream.sh", "#!/bin/sh\ngst-launch-1.0 udpsrc port=5600 ! fakesink\n")
	dev.SetFile("/config/autoload-wfb-nics.sh", "#!/bin/sh\nwfb-nics wlan1\n")
	dev.SetFile("/config/rec-fps", "60\n")
	dev.SetFile("/config/screen-mode", "1920x1080@60\n")
	return dev
}

func newOrchestrator(dev *transport.FakeDevice) *Orchestrator {
	return New(dev.Dialer(), registry.New(), nil, config.DefaultSettings())
}

func catCommands(dev *transport.FakeDevice) []string {
	var cats []string
	for _, cmd := range dev.Commands() {
		if strings.HasPrefix(cmd, "cat ") {
			cats = append(cats, cmd)
		}
	}
	return cats
}

func TestSyncCompanionBoard(t *testing.T) {
	dev := boardDevice()
	o := newOrchestrator(dev)

	report, docs, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.CompanionBoard, Verify: true})
	require.NoError(t, err)
	assert.Equal(t, "radxa-zero3", report.Hostname)
	assert.Equal(t, device.CompanionBoard, report.Class)
	assert.Empty(t, report.Failed())

	want := []string{"/config/stream.sh", "/config/autoload-wfb-nics.sh", "/config/rec-fps", "/config/screen-mode"}
	require.Len(t, docs, 4)
	for i, doc := range docs {
		assert.Equal(t, want[i], doc.Path)
		assert.Equal(t, codec.FormatPlain, doc.Format)
		assert.IsType(t, codec.Plain{}, doc.Content)
		assert.False(t, doc.Dirty)
		content, _ := dev.File(want[i])
		assert.Equal(t, content, doc.Buffer)
	}
	assert.Equal(t, want, o.Registry().Paths())

	wantCmds := []string{"hostname"}
	for _, p := range want {
		wantCmds = append(wantCmds, "cat "+shellescape.Quote(p))
	}
	assert.Equal(t, wantCmds, dev.Commands())
	assert.Equal(t, Ready, o.State())
	assert.Equal(t, 1, dev.Dials())
	assert.Equal(t, 0, dev.OpenConnections())
}

func TestMismatchStopsBeforeFetch(t *testing.T) {
	dev := boardDevice()
	o := newOrchestrator(dev)

	_, err := o.Fetch(context.Background(), Request{Creds: creds, Class: device.Camera, Verify: true})
	var mismatch *device.MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, device.Camera, mismatch.Expected)
	assert.Equal(t, device.CompanionBoard, mismatch.Probed)

	assert.Equal(t, Failed, o.State())
	assert.Empty(t, catCommands(dev), "no file may be read after a mismatch")
	assert.Equal(t, []string{"hostname"}, dev.Commands())
	assert.Equal(t, 0, dev.OpenConnections())
	assert.Equal(t, 0, o.Registry().Len())
}

func TestPartialFailure(t *testing.T) {
	dev := cameraDevice()
	dev.CommandErrors["cat "+shellescape.Quote("/etc/majestic.yaml")] = errors.New("i/o error")
	o := newOrchestrator(dev)

	report, docs, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera, Verify: true})
	require.NoError(t, err)
	assert.Equal(t, Ready, o.State())

	require.Len(t, report.Files, 3)
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "/etc/majestic.yaml", failed[0].File.Path)
	var cmdErr *transport.CommandError
	assert.ErrorAs(t, failed[0].Err, &cmdErr)

	require.Len(t, docs, 2)
	assert.Equal(t, []string{"/etc/wfb.conf", "/etc/telemetry.conf"}, o.Registry().Paths())
	assert.Len(t, catCommands(dev), 3, "the file after the failure is still fetched")
	assert.Equal(t, 0, dev.OpenConnections())
}

func TestStructuredFileDecoded(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)

	_, _, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera})
	require.NoError(t, err)

	doc, err := o.Registry().Get("/etc/majestic.yaml")
	require.NoError(t, err)
	s, ok := doc.Content.(codec.Structured)
	require.True(t, ok)
	v, ok := s.Doc.Get("video0", "codec")
	require.True(t, ok)
	assert.Equal(t, "h265", v.(codec.Scalar).Text)
	assert.Equal(t, majesticYAML, doc.Buffer, "the buffer keeps the fetched text")
}

func TestUnparseableStructuredFileFallsBack(t *testing.T) {
	dev := cameraDevice()
	dev.SetFile("/etc/majestic.yaml", "video0: [broken\n")
	o := newOrchestrator(dev)

	_, docs, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera})
	require.NoError(t, err)
	require.Len(t, docs, 3)

	doc := docs[1]
	assert.Equal(t, "/etc/majestic.yaml", doc.Path)
	assert.Equal(t, codec.Plain{Text: "video0: [broken\n"}, doc.Content)
	var de *codec.DecodeError
	assert.ErrorAs(t, doc.DecodeErr, &de)
}

func TestSkipProbeWithoutVerify(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)

	report, _, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera})
	require.NoError(t, err)
	assert.Empty(t, report.Hostname)
	assert.NotContains(t, dev.Commands(), "hostname")
}

func TestDetectClassFromHostname(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)

	report, docs, err := o.Sync(context.Background(), Request{Creds: creds})
	require.NoError(t, err)
	assert.Equal(t, device.Camera, report.Class)
	assert.Len(t, docs, 3)

	_, class := o.Device()
	assert.Equal(t, device.Camera, class)
}

func TestNoManagedFiles(t *testing.T) {
	tests := map[string]struct {
		hostname string
		class    device.Class
	}{
		"undetectable hostname": {"nvr-01", device.Unknown},
		"recorder":              {"nvr-01", device.Recorder},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dev := transport.NewFakeDevice(tt.hostname)
			o := newOrchestrator(dev)

			_, err := o.Fetch(context.Background(), Request{Creds: creds, Class: tt.class})
			require.ErrorIs(t, err, ErrNoManagedFiles)
			assert.Equal(t, Failed, o.State())
			assert.Empty(t, catCommands(dev))
			assert.Equal(t, 0, dev.OpenConnections())
		})
	}
}

func TestConnectFailure(t *testing.T) {
	dev := cameraDevice()
	dev.ConnectErr = errors.New("ssh: unable to authenticate")
	o := newOrchestrator(dev)

	_, err := o.Fetch(context.Background(), Request{Creds: creds, Class: device.Camera, Verify: true})
	var connErr *transport.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, Failed, o.State())
	assert.Empty(t, dev.Commands())

	// Failed is not terminal: the next attempt starts over.
	dev.ConnectErr = nil
	_, _, err = o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera, Verify: true})
	require.NoError(t, err)
	assert.Equal(t, Ready, o.State())
}

func TestInvalidCredentials(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)

	_, err := o.Fetch(context.Background(), Request{Creds: config.Credentials{Username: "root"}})
	require.Error(t, err)
	assert.Equal(t, Idle, o.State())
	assert.Equal(t, 0, dev.Dials())
}

func TestTransitions(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)
	var seen []string
	o.OnTransition(func(tr Transition) {
		seen = append(seen, tr.From.String()+">"+tr.To.String())
	})

	_, _, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera, Verify: true})
	require.NoError(t, err)
	require.NoError(t, o.Registry().SetBuffer("/etc/wfb.conf", "channel=165\n"))
	_, err = o.Save(context.Background(), "/etc/wfb.conf")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"idle>connecting",
		"connecting>probing",
		"probing>fetching",
		"fetching>ready",
		"ready>saving",
		"saving>ready",
	}, seen)
}

func TestRefetchDiscardsEdits(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)
	req := Request{Creds: creds, Class: device.Camera}

	_, _, err := o.Sync(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, o.Registry().SetBuffer("/etc/wfb.conf", "channel=165\n"))

	dev.SetFile("/etc/wfb.conf", "channel=149\n")
	_, _, err = o.Sync(context.Background(), req)
	require.NoError(t, err)

	doc, err := o.Registry().Get("/etc/wfb.conf")
	require.NoError(t, err)
	assert.False(t, doc.Dirty)
	assert.Equal(t, "channel=149\n", doc.Buffer)
	assert.Equal(t, 3, o.Registry().Len())
}

func TestSwitchingDeviceResetsRegistry(t *testing.T) {
	camera := cameraDevice()
	board := boardDevice()
	current := camera
	dial := func(c config.Credentials) transport.Transport { return current.Dialer()(c) }
	o := New(dial, registry.New(), nil, config.DefaultSettings())

	_, _, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera})
	require.NoError(t, err)

	current = board
	other := creds
	other.Host = "192.168.1.11"
	_, _, err = o.Sync(context.Background(), Request{Creds: other, Class: device.CompanionBoard})
	require.NoError(t, err)

	assert.Equal(t, []string{"/config/stream.sh", "/config/autoload-wfb-nics.sh", "/config/rec-fps", "/config/screen-mode"},
		o.Registry().Paths())
}

func TestSaveSuccess(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)
	_, _, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera})
	require.NoError(t, err)

	require.NoError(t, o.Registry().SetBuffer("/etc/wfb.conf", "channel=165\n"))
	doc, err := o.Save(context.Background(), "/etc/wfb.conf")
	require.NoError(t, err)

	assert.False(t, doc.Dirty)
	assert.Equal(t, "channel=165\n", doc.Buffer)
	content, _ := dev.File("/etc/wfb.conf")
	assert.Equal(t, "channel=165\n", content)
	assert.Equal(t, []string{"/etc/wfb.conf"}, dev.Uploads())
	assert.Equal(t, 2, dev.Dials(), "save opens its own connection")
	assert.Equal(t, 0, dev.OpenConnections())
	assert.Equal(t, Ready, o.State())
}

func TestSaveFailure(t *testing.T) {
	dev := cameraDevice()
	dev.UploadErrors["/etc/wfb.conf"] = errors.New("permission denied")
	o := newOrchestrator(dev)
	_, _, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera})
	require.NoError(t, err)

	require.NoError(t, o.Registry().SetBuffer("/etc/wfb.conf", "channel=165\n"))
	doc, err := o.Save(context.Background(), "/etc/wfb.conf")
	var transferErr *transport.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "upload", transferErr.Op)

	assert.True(t, doc.Dirty)
	assert.Equal(t, "channel=165\n", doc.Buffer)
	content, _ := dev.File("/etc/wfb.conf")
	assert.Equal(t, "channel=161\nbandwidth=20\n", content)
	assert.Equal(t, 0, dev.OpenConnections())
	assert.Equal(t, Ready, o.State())
}

func TestSaveConnectFailureKeepsDirty(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)
	_, _, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera})
	require.NoError(t, err)
	require.NoError(t, o.Registry().SetBuffer("/etc/wfb.conf", "channel=165\n"))

	dev.ConnectErr = errors.New("no route to host")
	doc, err := o.Save(context.Background(), "/etc/wfb.conf")
	var connErr *transport.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.True(t, doc.Dirty)
}

func TestSaveRequiresDirty(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)
	_, _, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera})
	require.NoError(t, err)

	_, err = o.Save(context.Background(), "/etc/wfb.conf")
	assert.ErrorIs(t, err, ErrNotDirty)

	_, err = o.Save(context.Background(), "/etc/shadow")
	var nf *registry.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, 1, dev.Dials(), "nothing to upload, no connection")
}

func TestSaveAll(t *testing.T) {
	dev := cameraDevice()
	dev.UploadErrors["/etc/telemetry.conf"] = errors.New("read-only file system")
	o := newOrchestrator(dev)
	_, _, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera})
	require.NoError(t, err)

	require.NoError(t, o.Registry().SetBuffer("/etc/wfb.conf", "channel=165\n"))
	require.NoError(t, o.Registry().SetBuffer("/etc/majestic.yaml", "video0:\n  fps: 60\n"))
	require.NoError(t, o.Registry().SetBuffer("/etc/telemetry.conf", "baud=57600\n"))

	results, err := o.SaveAll(context.Background())
	require.Error(t, err)
	var transferErr *transport.TransferError
	assert.ErrorAs(t, err, &transferErr)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Error(t, results[2].Err)
	assert.Equal(t, []string{"/etc/telemetry.conf"}, o.Registry().Dirty())
	assert.ElementsMatch(t, []string{"/etc/wfb.conf", "/etc/majestic.yaml"}, dev.Uploads())
	assert.Equal(t, 4, dev.Dials(), "one connection per save")
	assert.Equal(t, 0, dev.OpenConnections())
	assert.Equal(t, Ready, o.State())
}

func TestRevert(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)
	_, _, err := o.Sync(context.Background(), Request{Creds: creds, Class: device.Camera})
	require.NoError(t, err)
	require.NoError(t, o.Registry().SetBuffer("/etc/wfb.conf", "channel=165\n"))

	doc, err := o.Revert("/etc/wfb.conf")
	require.NoError(t, err)
	assert.False(t, doc.Dirty)
	assert.Equal(t, "channel=161\nbandwidth=20\n", doc.Buffer)
}

// gatedTransport holds Connect until release is closed.
type gatedTransport struct {
	transport.Transport
	release <-chan struct{}
}

func (g gatedTransport) Connect(ctx context.Context) error {
	<-g.release
	return g.Transport.Connect(ctx)
}

func TestFetchWhileBusy(t *testing.T) {
	dev := cameraDevice()
	release := make(chan struct{})
	dial := func(c config.Credentials) transport.Transport {
		return gatedTransport{Transport: dev.Dialer()(c), release: release}
	}
	o := New(dial, registry.New(), nil, config.DefaultSettings())

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = o.Fetch(context.Background(), Request{Creds: creds, Class: device.Camera})
	}()

	require.Eventually(t, func() bool { return o.State() == Connecting }, time.Second, time.Millisecond)
	_, err := o.Fetch(context.Background(), Request{Creds: creds, Class: device.Camera})
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, 0, o.Registry().Len(), "registry untouched until Apply")
}

func TestCanceledFetch(t *testing.T) {
	dev := cameraDevice()
	o := newOrchestrator(dev)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Fetch(ctx, Request{Creds: creds, Class: device.Camera})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Failed, o.State())
	assert.Equal(t, 0, dev.OpenConnections())
}
