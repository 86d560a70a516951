package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/eugeniofciuvasile/ipcc/internal/device"
)

// DefaultPort is the SSH port used when a host carries none.
const DefaultPort = 22

// Credentials identify one device login. They are fixed for the duration of
// an orchestrated operation.
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Address returns host:port, honouring a port embedded in Host.
func (c Credentials) Address() string {
	host, port := c.Host, c.Port
	if h, p, err := net.SplitHostPort(c.Host); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// String is safe to log; it never includes the password.
func (c Credentials) String() string {
	return fmt.Sprintf("%s@%s", c.Username, c.Address())
}

// Validate reports the first missing field.
func (c Credentials) Validate() error {
	switch {
	case strings.TrimSpace(c.Host) == "":
		return fmt.Errorf("IP address is required")
	case strings.TrimSpace(c.Username) == "":
		return fmt.Errorf("username is required")
	}
	return nil
}

// AppConfig is the persisted connection record. Field names are part of the
// on-disk format.
type AppConfig struct {
	Username   string       `json:"Username"`
	Password   string       `json:"Password"`
	IPAddress  string       `json:"IPAddress"`
	DeviceType device.Class `json:"DeviceType"`
}

// NewAppConfig returns the empty record used when nothing is stored yet.
func NewAppConfig() *AppConfig {
	return &AppConfig{}
}

// Credentials converts the record for the given port.
func (a *AppConfig) Credentials(port int) Credentials {
	return Credentials{
		Host:     strings.TrimSpace(a.IPAddress),
		Port:     port,
		Username: strings.TrimSpace(a.Username),
		Password: a.Password,
	}
}
