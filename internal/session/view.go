package session

import (
	"github.com/codehiveofficial/codehive/internal/chat"
	"github.com/codehiveofficial/codehive/internal/docsync"
	"github.com/codehiveofficial/codehive/internal/peer"
)

type Room struct {
	ID string
}

type Participant struct {
	ID           string
	DisplayName  string
	VideoEnabled bool
	AudioEnabled bool
}

// View is a consistent copy of everything a UI renders.
type View struct {
	State        State
	Room         Room
	Self         Participant
	Participants []Participant
	Links        []peer.Link
	Document     docsync.State
	Messages     []chat.Message
}

// Participant returns the remote participant with id.
func (v View) Participant(id string) (Participant, bool) {
	for _, p := range v.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// Update tells subscribers that the view changed and why.
type Update struct {
	State  State
	Reason string
	// Err is set when the change was caused by a failure, such as the relay
	// connection dropping.
	Err error
}
