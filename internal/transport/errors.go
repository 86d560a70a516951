package transport

import "fmt"

// ConnectionError reports an authentication, network or timeout failure while
// connecting to a host.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommandError reports a failed remote command.
type CommandError struct {
	Cmd      string
	ExitCode int // -1 when the command never produced an exit status
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("run %q: %v: %s", e.Cmd, e.Err, e.Stderr)
	}
	return fmt.Sprintf("run %q: %v", e.Cmd, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// TransferError reports a failed upload or download.
type TransferError struct {
	Op   string // "upload" or "download"
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
