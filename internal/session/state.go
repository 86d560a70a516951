package session

import "fmt"

// State is the orchestrator's position in the connect, fetch and save flow.
type State int

const (
	Idle State = iota
	Connecting
	Probing
	Fetching
	Ready
	Saving
	Failed
)

var stateNames = [...]string{
	Idle:       "idle",
	Connecting: "connecting",
	Probing:    "probing",
	Fetching:   "fetching",
	Ready:      "ready",
	Saving:     "saving",
	Failed:     "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Busy reports whether a fetch is between connect and apply.
func (s State) Busy() bool {
	return s == Connecting || s == Probing || s == Fetching
}

// Transition is passed to OnTransition hooks. Err is set when To is Failed.
type Transition struct {
	From, To State
	Err      error
}
