package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/codehiveofficial/codehive/internal/peer"
	"github.com/codehiveofficial/codehive/internal/session"
)

func TestParticipantsView(t *testing.T) {
	if got := ParticipantsView(session.View{}); !strings.Contains(got, "Nobody else") {
		t.Errorf("empty view = %q", got)
	}

	v := session.View{
		Participants: []session.Participant{
			{ID: "b", DisplayName: "bob", VideoEnabled: true},
			{ID: "c", DisplayName: "carol"},
		},
		Links: []peer.Link{{ParticipantID: "b", State: peer.Connected}},
	}
	got := ParticipantsView(v)
	for _, want := range []string{"bob", "carol", peer.Connected.String(), IconVideoOn, IconAudioOff} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, Summary{RoomID: "brave-otter-lamp", Participants: 2, Messages: 5, Document: 2048, Duration: "3m 5s"})

	out := buf.String()
	for _, want := range []string{"Session Summary", "brave-otter-lamp", "2.00 KB", "3m 5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
