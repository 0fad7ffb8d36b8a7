package session

import "fmt"

// State is the lifecycle state of a session.
type State int

// Session states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingCredentialChallenge
	StateLoggedIn
	StateLoggedOff
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateAwaitingCredentialChallenge:
		return "AwaitingCredentialChallenge"
	case StateLoggedIn:
		return "LoggedIn"
	case StateLoggedOff:
		return "LoggedOff"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == StateLoggedOff || s == StateFailed
}
