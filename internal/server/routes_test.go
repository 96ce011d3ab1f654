package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codehiveofficial/codehive/internal/relay"
	"github.com/codehiveofficial/codehive/internal/signaling"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestServer(t *testing.T, withMetrics bool) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := prometheus.NewRegistry()
	hub := relay.NewHub(relay.NewMetrics(reg), log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	var gatherer prometheus.Gatherer
	if withMetrics {
		gatherer = reg
	}
	srv := httptest.NewServer(NewHandler(hub, gatherer, log))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)
	code, body := get(t, srv.URL+"/health")
	if code != http.StatusOK || !strings.Contains(body, "healthy") {
		t.Errorf("health = %d %q", code, body)
	}
	if code, _ := get(t, srv.URL+"/metrics"); code != http.StatusNotFound {
		t.Errorf("metrics should be off, got %d", code)
	}
}

func TestMetricsCountEvents(t *testing.T) {
	srv := newTestServer(t, true)

	c, err := signaling.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	c.Send(signaling.CreateRoom{})
	for ev := range c.Incoming() {
		if _, ok := ev.(signaling.RoomCreated); ok {
			break
		}
	}

	_, body := get(t, srv.URL+"/metrics")
	for _, want := range []string{
		`codehive_relay_events_total{kind="create_room"} 1`,
		"codehive_relay_rooms 1",
		"codehive_relay_clients 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
