package session

type State int

const (
	// Unauthenticated: no token is held.
	Unauthenticated State = iota
	// PendingValidation: a token is held but the backend has not confirmed it.
	PendingValidation
	// Authenticated: the backend accepted the token and returned the profile.
	Authenticated
	// Invalid: the last validation failed and the session was cleared.
	Invalid
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case PendingValidation:
		return "pending"
	case Authenticated:
		return "authenticated"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}
