package sshutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// GetPasswordAuthMethod returns an AuthMethod using the specified password
func GetPasswordAuthMethod(password string) ssh.AuthMethod {
	return ssh.Password(password)
}

// GetKeyboardInteractiveAuthMethod answers every keyboard-interactive
// question with the password. Embedded Linux images often only enable this
// method for root logins.
func GetKeyboardInteractiveAuthMethod(password string) ssh.AuthMethod {
	return ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = password
		}
		return answers, nil
	})
}

// GetAuthMethods returns the methods used for a username/password login,
// in the order they are offered to the server.
func GetAuthMethods(password string) ([]ssh.AuthMethod, error) {
	if password == "" {
		return nil, errors.New("password is required")
	}
	return []ssh.AuthMethod{
		GetPasswordAuthMethod(password),
		GetKeyboardInteractiveAuthMethod(password),
	}, nil
}

// GetHostKeyCallback verifies host keys against knownHostsFile. With no file
// every host key is accepted, which is what freshly flashed devices with
// regenerated keys need.
func GetHostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if knownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts %s: %w", knownHostsFile, err)
	}
	return cb, nil
}

// DefaultKnownHostsFile returns ~/.ssh/known_hosts if it exists.
func DefaultKnownHostsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".ssh", "known_hosts")
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return ""
	}
	return path
}
