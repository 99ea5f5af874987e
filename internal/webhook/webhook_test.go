package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runepause/internal/core/timekeeper"
)

func TestNotifierPostsPhaseTransitions(t *testing.T) {
	received := make(chan Payload, 4)
	headers := make(chan http.Header, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		received <- payload
		headers <- r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := New(server.URL)
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	notifier.OnEvent(timekeeper.Event{Type: timekeeper.EventTick, Tick: timekeeper.Tick{Phase: timekeeper.PhaseFocus}})
	notifier.OnEvent(timekeeper.Event{
		Type:      timekeeper.EventPhaseStart,
		Tick:      timekeeper.Tick{Phase: timekeeper.PhaseBreak, Remaining: 600, Cycle: 2},
		Total:     600,
		HardBreak: true,
		At:        at,
		RunID:     "run-1",
	})

	require.Len(t, received, 1)
	payload := <-received
	assert.Equal(t, timekeeper.EventPhaseStart, payload.Event)
	assert.Equal(t, timekeeper.PhaseBreak, payload.Phase)
	assert.Equal(t, 2, payload.Cycle)
	assert.Equal(t, 600, payload.Remaining)
	assert.True(t, payload.HardBreak)
	assert.Equal(t, "2025-03-01T09:00:00Z", payload.TS)

	header := <-headers
	assert.Equal(t, "phase_start", header.Get("X-RunePause-Event"))
	assert.NotEmpty(t, header.Get("X-RunePause-Delivery"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
}

func TestPostReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	err := New(server.URL).Post(context.Background(), timekeeper.Event{Type: timekeeper.EventPhaseEnd})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestEmptyURLIsNoop(t *testing.T) {
	New("  ").OnEvent(timekeeper.Event{Type: timekeeper.EventPhaseEnd})
}
