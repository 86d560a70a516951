package cli

import (
	"github.com/eugeniofciuvasile/ipcc/internal/device"
	"github.com/eugeniofciuvasile/ipcc/internal/transport"
)

const (
	demoCameraHostname = "openipc-ssc338q"
	demoBoardHostname  = "radxa-zero3w"
)

var demoFiles = map[string]string{
	"/etc/wfb.conf": `### unit: drone or gs
unit=drone
wlan=wlan0
region=00
channel=161
txpower=1
driver_txpower_override=1
bandwidth=20
stbc=1
ldpc=1
mcs_index=1
stream=0
link_id=7669206
udp_port=5600
rcv_buf=456000
frame_type=data
fec_k=8
fec_n=12
pool_timeout=0
guard_interval=long
`,
	"/etc/majestic.yaml": `system:
  webPort: 80
  httpsPort: 443
  logLevel: info
isp:
  blkCnt: 4
  exposure: 10
image:
  mirror: false
  flip: false
  rotate: 0
video0:
  enabled: true
  codec: h265
  fps: 90
  size: 1920x1080
  bitrate: 12288
  rcMode: cbr
  gopSize: 1
video1:
  enabled: false
jpeg:
  enabled: false
osd:
  enabled: false
audio:
  enabled: false
rtsp:
  enabled: true
  port: 554
outgoing:
  enabled: true
  server: udp://127.0.0.1:5600
  naluSize: 1200
fpv:
  enabled: true
  noiseLevel: 0
`,
	"/etc/telemetry.conf": `### unit: drone or gs
unit=drone
serial=/dev/ttyS2
baud=115200
router=mavfwd
port_tx=14550
port_rx=14551
mcs_index=1
aggregate=15
channels=8
`,
	"/config/stream.sh": `#!/bin/sh
gst-launch-1.0 udpsrc port=5600 caps='application/x-rtp, media=(string)video, encoding-name=(string)H265' ! \
    rtph265depay ! h265parse ! mppvideodec ! kmssink sync=false
`,
	"/config/autoload-wfb-nics.sh": `#!/bin/sh
for nic in $(ls /sys/class/net | grep wlx); do
    wfb-nics "$nic"
done
`,
	"/config/rec-fps": "60\n",
	"/config/screen-mode": "1920x1080@60\n",
}

// DemoDevice returns an in-memory device carrying both the camera and the
// board file sets. Its hostname follows class; Unknown and Recorder get the
// camera hostname.
func DemoDevice(class device.Class) *transport.FakeDevice {
	hostname := demoCameraHostname
	if class == device.CompanionBoard {
		hostname = demoBoardHostname
	}
	dev := transport.NewFakeDevice(hostname)
	for path, content := range demoFiles {
		dev.SetFile(path, content)
	}
	return dev
}
