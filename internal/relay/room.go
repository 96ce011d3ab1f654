package relay

import "github.com/codehiveofficial/codehive/internal/signaling"

// Room is a set of clients sharing a document, chat and call mesh.
type Room struct {
	ID string

	// members in join order
	members []*Client

	// owner created the room; an empty room is dropped when its owner goes away
	owner *Client
}

func (r *Room) add(c *Client) {
	r.members = append(r.members, c)
}

func (r *Room) remove(c *Client) bool {
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) member(id string) *Client {
	for _, m := range r.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (r *Room) roster() []signaling.Member {
	users := make([]signaling.Member, 0, len(r.members))
	for _, m := range r.members {
		users = append(users, signaling.Member{UserID: m.ID, UserName: m.Name})
	}
	return users
}

func (r *Room) empty() bool {
	return len(r.members) == 0
}
