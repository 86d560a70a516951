package sshutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoPassword is returned when no password could be read.
var ErrNoPassword = errors.New("no password entered")

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ReadPassword prints prompt to out and reads a password from in without
// echo. When in is not a terminal a single line is read instead, so the
// password can be piped.
func ReadPassword(prompt string, in *os.File, out io.Writer) (string, error) {
	fmt.Fprint(out, prompt)
	if IsTerminal(in) {
		password, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprint(out, "\n")
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		if len(password) == 0 {
			return "", ErrNoPassword
		}
		return string(password), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", ErrNoPassword
	}
	return line, nil
}
