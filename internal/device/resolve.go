package device

import (
	"fmt"
	"strings"
)

// Hostname markers, checked in this order. A marker anywhere in the hostname
// counts as a match.
const (
	CameraMarker = "openipc-"
	BoardMarker  = "radxa"
)

// MismatchError reports that the probed hostname contradicts the class the
// user selected.
type MismatchError struct {
	Expected Class
	Probed   Class
	Hostname string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("device %q does not look like a %s (detected: %s); choose the correct device type or host",
		e.Hostname, e.Expected, e.Probed)
}

// Classify infers a class from a hostname.
func Classify(hostname string) Class {
	switch {
	case strings.Contains(hostname, CameraMarker):
		return Camera
	case strings.Contains(hostname, BoardMarker):
		return CompanionBoard
	}
	return Unknown
}

// Resolve picks the class to use. An explicit class always wins; the hostname
// is then only used to validate it. Recorder has no hostname marker and is
// accepted as selected.
func Resolve(explicit Class, hostname string) (Class, error) {
	hostname = strings.TrimSpace(hostname)
	probed := Classify(hostname)

	switch explicit {
	case Unknown:
		return probed, nil
	case Camera, CompanionBoard:
		if probed != explicit {
			return explicit, &MismatchError{Expected: explicit, Probed: probed, Hostname: hostname}
		}
	}
	return explicit, nil
}
