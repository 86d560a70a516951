package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	DefaultDialTimeout    = 10 * time.Second
	DefaultCommandTimeout = 15 * time.Second

	// EnvPrefix names the environment overrides, e.g. IPCC_DIAL_TIMEOUT.
	EnvPrefix = "IPCC"
)

// Settings keys. Flags of the same name bind to them.
const (
	KeyPort           = "port"
	KeyDialTimeout    = "dial-timeout"
	KeyCommandTimeout = "command-timeout"
	KeyKnownHosts     = "known-hosts"
	KeyLog            = "log"
)

// Settings tune the transport. They are not persisted; they come from the
// environment and command line flags.
type Settings struct {
	Port           int
	DialTimeout    time.Duration
	CommandTimeout time.Duration
	KnownHostsFile string
	LogFile        string
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Port:           DefaultPort,
		DialTimeout:    DefaultDialTimeout,
		CommandTimeout: DefaultCommandTimeout,
	}
}

// NewViper returns a viper instance that reads IPCC_* environment variables
// over the defaults. Flags bound to it afterwards win over both when set.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyDialTimeout, DefaultDialTimeout)
	v.SetDefault(KeyCommandTimeout, DefaultCommandTimeout)
	return v
}

// LoadSettings reads Settings from v.
func LoadSettings(v *viper.Viper) (Settings, error) {
	s := DefaultSettings()

	port, err := cast.ToIntE(v.Get(KeyPort))
	if err != nil || port < 1 || port > 65535 {
		return s, fmt.Errorf("port must be a number between 1 and 65535, got %q", v.GetString(KeyPort))
	}
	s.Port = port

	if s.DialTimeout, err = cast.ToDurationE(v.Get(KeyDialTimeout)); err != nil {
		return s, fmt.Errorf("invalid dial timeout %q: %w", v.GetString(KeyDialTimeout), err)
	}
	if s.CommandTimeout, err = cast.ToDurationE(v.Get(KeyCommandTimeout)); err != nil {
		return s, fmt.Errorf("invalid command timeout %q: %w", v.GetString(KeyCommandTimeout), err)
	}
	s.KnownHostsFile = ExpandPath(v.GetString(KeyKnownHosts))
	s.LogFile = ExpandPath(v.GetString(KeyLog))
	return s, nil
}

// ResolveLogFile returns LogFile or ~/.config/ipcc/ipcc.log.
func (s Settings) ResolveLogFile() (string, error) {
	if s.LogFile != "" {
		return s.LogFile, nil
	}
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "ipcc.log"), nil
}

// Validate rejects non-positive timeouts.
func (s Settings) Validate() error {
	if s.DialTimeout <= 0 {
		return fmt.Errorf("dial timeout must be positive")
	}
	if s.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive")
	}
	if s.KnownHostsFile != "" {
		if _, err := os.Stat(s.KnownHostsFile); err != nil {
			return fmt.Errorf("known hosts file: %w", err)
		}
	}
	return nil
}
