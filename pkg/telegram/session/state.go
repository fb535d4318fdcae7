package session

// State — состояние менеджера сессии.
type State int

const (
	StateUninitialized State = iota
	StateAuthenticating
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
