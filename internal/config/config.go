package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const (
	appDirName            = "ipcc"
	defaultConfigFileName = "appconfig.json"
	keyringService        = "ipcc"
)

// Keyring is the subset of the OS keyring the store uses.
type Keyring interface {
	Get(service, user string) (string, error)
	Set(service, user, password string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (osKeyring) Set(service, user, password string) error { return keyring.Set(service, user, password) }

// Store loads and saves the connection record as a single JSON object.
type Store struct {
	ConfigPath string
	Config     *AppConfig

	// UseKeyring keeps the password in the OS keyring and writes an empty
	// Password field to disk.
	UseKeyring bool
	Keyring    Keyring
}

// ConfigDir returns ~/.config/ipcc, creating it if needed.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", appDirName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// NewStore returns a store for the default config location.
func NewStore() (*Store, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(filepath.Join(configDir, defaultConfigFileName)), nil
}

// NewStoreAt returns a store for an explicit file path.
func NewStoreAt(path string) *Store {
	return &Store{
		ConfigPath: path,
		Config:     NewAppConfig(),
		Keyring:    osKeyring{},
	}
}

// Load reads the record. A missing file leaves the empty record in place.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.ConfigPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := NewAppConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	s.Config = cfg

	if s.Config.Password == "" && s.Config.Username != "" && s.Keyring != nil {
		password, err := s.Keyring.Get(keyringService, s.keyringUser())
		if err == nil {
			s.Config.Password = password
		} else if !errors.Is(err, keyring.ErrNotFound) {
			log.Printf("[Store] keyring lookup for %s failed: %v", s.keyringUser(), err)
		}
	}
	return nil
}

// Save writes the record, moving the password to the keyring when enabled.
func (s *Store) Save() error {
	onDisk := *s.Config
	if s.UseKeyring && s.Keyring != nil && onDisk.Password != "" {
		if err := s.Keyring.Set(keyringService, s.keyringUser(), onDisk.Password); err != nil {
			log.Printf("[Store] keyring unavailable, keeping password in %s: %v", s.ConfigPath, err)
		} else {
			onDisk.Password = ""
		}
	}

	data, err := json.MarshalIndent(&onDisk, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(s.ConfigPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (s *Store) keyringUser() string {
	return s.Config.Username + "@" + s.Config.IPAddress
}
