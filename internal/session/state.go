package session

// State is the session lifecycle.
//
//	Idle → Initializing → Ready → Joining → Joined → Leaving → Idle
type State int

const (
	Idle State = iota
	Initializing
	Ready
	Joining
	Joined
	Leaving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	case Leaving:
		return "leaving"
	}
	return "unknown"
}

// inRoom reports whether the state holds room resources.
func (s State) inRoom() bool {
	return s == Joining || s == Joined || s == Leaving
}
