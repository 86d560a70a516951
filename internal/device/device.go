// Package device knows which configuration files each kind of device carries
// and how to tell the kinds apart.
package device

import (
	"fmt"
	"strings"

	"github.com/eugeniofciuvasile/ipcc/internal/codec"
)

// Class is the kind of remote target. The numeric values are persisted.
type Class int

const (
	Unknown Class = iota
	Camera
	CompanionBoard
	Recorder
)

var classNames = map[Class]string{
	Unknown:        "unknown",
	Camera:         "camera",
	CompanionBoard: "board",
	Recorder:       "recorder",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Label is the human form shown in the UI.
func (c Class) Label() string {
	switch c {
	case Camera:
		return "Camera (OpenIPC)"
	case CompanionBoard:
		return "Companion board (Radxa)"
	case Recorder:
		return "Recorder (NVR)"
	default:
		return "Auto-detect"
	}
}

// ParseClass accepts the String form, a few aliases, or the numeric value.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "none", "auto", "0":
		return Unknown, nil
	case "camera", "cam", "openipc", "1":
		return Camera, nil
	case "board", "radxa", "companion", "2":
		return CompanionBoard, nil
	case "recorder", "nvr", "3":
		return Recorder, nil
	}
	return Unknown, fmt.Errorf("unknown device class %q (want camera, board, recorder or unknown)", s)
}

// Set implements pflag.Value.
func (c *Class) Set(s string) error {
	parsed, err := ParseClass(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Type implements pflag.Value.
func (c *Class) Type() string { return "class" }

// Classes lists every class in display order.
func Classes() []Class {
	return []Class{Unknown, Camera, CompanionBoard, Recorder}
}

// File is one managed remote file.
type File struct {
	Path   string
	Format codec.Format
}

var fileSets = map[Class][]File{
	Camera: {
		{Path: "/etc/wfb.conf", Format: codec.FormatPlain},
		{Path: "/etc/majestic.yaml", Format: codec.FormatStructured},
		{Path: "/etc/telemetry.conf", Format: codec.FormatPlain},
	},
	CompanionBoard: {
		{Path: "/config/stream.sh", Format: codec.FormatPlain},
		{Path: "/config/autoload-wfb-nics.sh", Format: codec.FormatPlain},
		{Path: "/config/rec-fps", Format: codec.FormatPlain},
		{Path: "/config/screen-mode", Format: codec.FormatPlain},
	},
}

// FileSet returns the managed files for c in fetch order. The slice is a
// copy. Unknown and Recorder have no managed files.
func FileSet(c Class) []File {
	return append([]File(nil), fileSets[c]...)
}
