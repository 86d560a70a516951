// Package cli holds what the headless commands share: connection flags,
// credential resolution, the password prompt, the file picker and the demo
// device.
package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eugeniofciuvasile/ipcc/internal/config"
	"github.com/eugeniofciuvasile/ipcc/internal/device"
	"github.com/eugeniofciuvasile/ipcc/internal/ssh"
	"github.com/eugeniofciuvasile/ipcc/internal/transport"
	"github.com/eugeniofciuvasile/ipcc/pkg/sshutil"
)

// Demo login used when --demo is set and nothing else is given.
const (
	demoHost     = "192.168.1.10"
	demoUser     = "root"
	demoPassword = "12345"
)

// Options are the connection flags shared by every command.
type Options struct {
	Host           string
	User           string
	Class          device.Class
	Port           int
	DialTimeout    time.Duration
	CommandTimeout time.Duration
	KnownHosts     string
	StrictHostKey  bool
	Keyring        bool
	Demo           bool
	Verify         bool
	Verbose        bool
}

// Bind registers the options as persistent flags of cmd.
func (o *Options) Bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.Host, "host", "", "device IP address (default: last used)")
	flags.StringVarP(&o.User, "user", "u", "", "SSH username (default: last used)")
	flags.Var(&o.Class, "class", "device type: camera, board, recorder or unknown to detect")
	flags.IntVarP(&o.Port, config.KeyPort, "p", config.DefaultPort, "SSH port")
	flags.DurationVar(&o.DialTimeout, config.KeyDialTimeout, config.DefaultDialTimeout, "timeout for connecting and authenticating")
	flags.DurationVar(&o.CommandTimeout, config.KeyCommandTimeout, config.DefaultCommandTimeout, "timeout for each remote command or transfer")
	flags.StringVar(&o.KnownHosts, config.KeyKnownHosts, "", "verify host keys against this known_hosts file")
	flags.BoolVar(&o.StrictHostKey, "strict-host-key", false, "verify host keys against ~/.ssh/known_hosts")
	flags.BoolVar(&o.Keyring, "keyring", false, "keep the password in the OS keyring instead of the config file")
	flags.BoolVar(&o.Demo, "demo", false, "use a built-in simulated device instead of SSH")
	flags.BoolVar(&o.Verify, "verify", false, "check the hostname matches the device type before fetching")
	flags.BoolVarP(&o.Verbose, "verbose", "v", false, "log progress to stderr")
}

// Settings layers explicitly set flags over the IPCC_* environment and the
// defaults.
func (o *Options) Settings(cmd *cobra.Command) (config.Settings, error) {
	v := config.NewViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return config.Settings{}, fmt.Errorf("failed to bind flags: %w", err)
	}
	s, err := config.LoadSettings(v)
	if err != nil {
		return s, err
	}
	if v.GetBool("strict-host-key") && s.KnownHostsFile == "" {
		s.KnownHostsFile = sshutil.DefaultKnownHostsFile()
		if s.KnownHostsFile == "" {
			return s, fmt.Errorf("--strict-host-key: no ~/.ssh/known_hosts file found")
		}
	}
	return s, s.Validate()
}

// Store loads the persisted connection record.
func (o *Options) Store() (*config.Store, error) {
	store, err := config.NewStore()
	if err != nil {
		return nil, err
	}
	store.UseKeyring = o.Keyring
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// Apply overlays the host, user and class flags on the stored record.
func (o *Options) Apply(cmd *cobra.Command, cfg *config.AppConfig) {
	if o.Host != "" {
		cfg.IPAddress = o.Host
	}
	if o.User != "" {
		cfg.Username = o.User
	}
	if cmd.Flags().Changed("class") {
		cfg.DeviceType = o.Class
	}
	if o.Demo {
		if cfg.IPAddress == "" {
			cfg.IPAddress = demoHost
		}
		if cfg.Username == "" {
			cfg.Username = demoUser
		}
		if cfg.Password == "" {
			cfg.Password = demoPassword
		}
	}
}

// PasswordPrompt asks for the password of creds.
type PasswordPrompt func(creds config.Credentials) (string, error)

// TerminalPrompt reads the password from stdin, without echo on a terminal.
func TerminalPrompt(creds config.Credentials) (string, error) {
	return sshutil.ReadPassword(fmt.Sprintf("%s's password: ", creds), os.Stdin, os.Stderr)
}

// Target is the device a headless command works on.
type Target struct {
	Creds config.Credentials
	Class device.Class
}

// Resolve builds the target from the stored record and the flags, asking
// for the password when none is known. The record is saved before
// returning; a prompted password is only kept when the keyring is in use.
func (o *Options) Resolve(cmd *cobra.Command, store *config.Store, prompt PasswordPrompt) (Target, error) {
	cfg := *store.Config
	o.Apply(cmd, &cfg)

	creds := cfg.Credentials(0)
	if err := creds.Validate(); err != nil {
		return Target{}, fmt.Errorf("%w (use --host and --user)", err)
	}

	prompted := false
	if creds.Password == "" {
		if prompt == nil {
			return Target{}, sshutil.ErrNoPassword
		}
		password, err := prompt(creds)
		if err != nil {
			return Target{}, err
		}
		creds.Password = password
		prompted = true
	}

	if !o.Demo {
		record := cfg
		if prompted && o.Keyring {
			record.Password = creds.Password
		}
		*store.Config = record
		if err := store.Save(); err != nil {
			log.Printf("[Store] %v", err)
		}
	}
	return Target{Creds: creds, Class: cfg.DeviceType}, nil
}

// Dialer returns the transport factory for the options.
func (o *Options) Dialer(settings config.Settings, class device.Class) transport.Dialer {
	if o.Demo {
		return DemoDevice(class).Dialer()
	}
	return ssh.Dialer(settings)
}
