package relay

import "github.com/codehiveofficial/codehive/internal/signaling"

// Message is an inbound frame handed from a client's read pump to the hub.
type Message struct {
	Event signaling.Event

	// Err is set when the frame could not be decoded.
	Err error

	client *Client
	codec  signaling.Codec
}

// frame is an encoded outbound message.
type frame struct {
	typ  int
	data []byte
}
