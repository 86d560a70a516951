package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/eugeniofciuvasile/ipcc/internal/cli"
	"github.com/eugeniofciuvasile/ipcc/internal/config"
	"github.com/eugeniofciuvasile/ipcc/internal/device"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	keyring.MockInit()
	return &app{
		getenv: func(string) string { return "" },
		pick: func(_ string, files []device.File) (device.File, error) {
			return files[0], nil
		},
	}
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(a)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFilesCommand(t *testing.T) {
	out, err := run(t, newTestApp(t), "files", "camera")
	require.NoError(t, err)
	assert.Contains(t, out, "/etc/majestic.yaml")
	assert.Contains(t, out, "structured")
	assert.NotContains(t, out, "/config/stream.sh")

	out, err = run(t, newTestApp(t), "files", "--json", "board")
	require.NoError(t, err)
	var entries []managedEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 4)
	assert.Equal(t, "/config/stream.sh", entries[0].Path)
	assert.Equal(t, "board", entries[0].Class)

	out, err = run(t, newTestApp(t), "files", "nvr")
	require.NoError(t, err)
	assert.Contains(t, out, "No managed files")

	_, err = run(t, newTestApp(t), "files", "toaster")
	assert.Error(t, err)
}

func TestProbeDemo(t *testing.T) {
	out, err := run(t, newTestApp(t), "probe", "--demo")
	require.NoError(t, err)
	assert.Contains(t, out, "openipc-ssc338q")
	assert.Contains(t, out, device.Camera.Label())

	out, err = run(t, newTestApp(t), "probe", "--demo", "--class", "board", "--json")
	require.NoError(t, err)
	var res probeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "radxa-zero3w", res.Hostname)
	assert.Equal(t, "board", res.Class)
	assert.Equal(t, "192.168.1.10:22", res.Host)
}

func TestDemoLeavesNoConfig(t *testing.T) {
	a := newTestApp(t)
	_, err := run(t, a, "probe", "--demo")
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(home, ".config", "ipcc", "appconfig.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestProbeNeedsAddress(t *testing.T) {
	_, err := run(t, newTestApp(t), "probe")
	assert.ErrorContains(t, err, "IP address is required")
}

func TestPullWritesFiles(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, newTestApp(t), "pull", "--demo", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "/etc/telemetry.conf")

	data, err := os.ReadFile(filepath.Join(dir, "etc", "majestic.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "video0:")
	_, err = os.Stat(filepath.Join(dir, "config", "stream.sh"))
	assert.True(t, os.IsNotExist(err), "board file pulled from a camera")
}

func TestPullJSONForBoard(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, newTestApp(t), "pull", "--demo", "--class", "board", "--out", dir, "--json")
	require.NoError(t, err)

	var report pullReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "board", report.Class)
	require.Len(t, report.Files, 4)
	for _, f := range report.Files {
		assert.Empty(t, f.Error, f.Path)
		assert.FileExists(t, f.Local)
	}
}

func TestPullReportsMissingFiles(t *testing.T) {
	a := newTestApp(t)
	dev := cli.DemoDevice(device.Camera)
	delete(dev.Files, "/etc/telemetry.conf")
	a.dial = dev.Dialer()

	dir := t.TempDir()
	out, err := run(t, a, "pull", "--demo", "--out", dir)
	assert.ErrorContains(t, err, "1 of 3 files")
	assert.Contains(t, out, "No such file")
	assert.FileExists(t, filepath.Join(dir, "etc", "wfb.conf"))
}

func TestPushUploads(t *testing.T) {
	a := newTestApp(t)
	dev := cli.DemoDevice(device.Camera)
	a.dial = dev.Dialer()

	local := filepath.Join(t.TempDir(), "wfb.conf")
	require.NoError(t, os.WriteFile(local, []byte("channel=149\n"), 0644))

	out, err := run(t, a, "push", "--demo", "/etc/wfb.conf", local)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded 12 bytes to /etc/wfb.conf")
	content, _ := dev.File("/etc/wfb.conf")
	assert.Equal(t, "channel=149\n", content)
}

func TestPushPicksRemote(t *testing.T) {
	a := newTestApp(t)
	dev := cli.DemoDevice(device.CompanionBoard)
	a.dial = dev.Dialer()
	var offered []device.File
	a.pick = func(_ string, files []device.File) (device.File, error) {
		offered = files
		return files[2], nil
	}

	local := filepath.Join(t.TempDir(), "rec-fps")
	require.NoError(t, os.WriteFile(local, []byte("60\n"), 0644))

	_, err := run(t, a, "push", "--demo", local)
	require.NoError(t, err)
	assert.Equal(t, device.FileSet(device.CompanionBoard), offered)
	content, _ := dev.File("/config/rec-fps")
	assert.Equal(t, "60\n", content)
}

func TestPushChecksStructuredFiles(t *testing.T) {
	a := newTestApp(t)
	dev := cli.DemoDevice(device.Camera)
	a.dial = dev.Dialer()

	local := filepath.Join(t.TempDir(), "majestic.yaml")
	require.NoError(t, os.WriteFile(local, []byte("- not\n- a mapping\n"), 0644))

	_, err := run(t, a, "push", "--demo", "/etc/majestic.yaml", local)
	assert.ErrorContains(t, err, "--force")
	assert.Empty(t, dev.Uploads())

	_, err = run(t, a, "push", "--demo", "--force", "/etc/majestic.yaml", local)
	require.NoError(t, err)
	assert.Equal(t, []string{"/etc/majestic.yaml"}, dev.Uploads())
}

func TestGetPrintsFile(t *testing.T) {
	out, err := run(t, newTestApp(t), "get", "--demo", "/etc/majestic.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "video0:")

	out, err = run(t, newTestApp(t), "get", "--demo")
	require.NoError(t, err)
	assert.Contains(t, out, "unit=drone")

	_, err = run(t, newTestApp(t), "get", "--demo", "/etc/missing")
	assert.Error(t, err)
}

func TestGetKey(t *testing.T) {
	out, err := run(t, newTestApp(t), "get", "--demo", "/etc/majestic.yaml", "--key", "video0.codec")
	require.NoError(t, err)
	assert.Equal(t, "h265\n", out)

	out, err = run(t, newTestApp(t), "get", "--demo", "/etc/majestic.yaml", "-k", "video0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "video0:\n"), out)
	assert.Contains(t, out, "  fps: ")

	_, err = run(t, newTestApp(t), "get", "--demo", "/etc/majestic.yaml", "--key", "video0.missing")
	assert.ErrorContains(t, err, `no value at "video0.missing"`)

	_, err = run(t, newTestApp(t), "get", "--demo", "/etc/wfb.conf", "--key", "channel")
	assert.Error(t, err)
}

func TestPasswordSources(t *testing.T) {
	a := newTestApp(t)
	creds := config.Credentials{Host: "10.0.0.1", Username: "root"}

	_, err := a.password(creds)
	assert.ErrorContains(t, err, "IPCC_PASSWORD")

	a.prompt = func(config.Credentials) (string, error) { return "typed", nil }
	p, err := a.password(creds)
	require.NoError(t, err)
	assert.Equal(t, "typed", p)

	a.getenv = func(k string) string {
		if k == "IPCC_PASSWORD" {
			return "from-env"
		}
		return ""
	}
	p, err = a.password(creds)
	require.NoError(t, err)
	assert.Equal(t, "from-env", p)
}
