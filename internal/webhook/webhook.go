// Package webhook posts phase transitions to a user-configured URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"runepause/internal/core/timekeeper"
)

const defaultTimeout = 5 * time.Second

// Payload is the JSON body of one delivery.
type Payload struct {
	Event     timekeeper.EventType `json:"event"`
	Phase     timekeeper.Phase     `json:"phase"`
	Outcome   timekeeper.Outcome   `json:"outcome,omitempty"`
	Cycle     int                  `json:"cycle"`
	Remaining int                  `json:"seconds_remaining"`
	Total     int                  `json:"total_seconds"`
	HardBreak bool                 `json:"hard_break"`
	RunID     string               `json:"run_id"`
	TS        string               `json:"ts"`
}

// Notifier delivers phase_start and phase_end events.
type Notifier struct {
	url    string
	client *http.Client
}

// New returns a Notifier posting to url.
func New(url string) *Notifier {
	return &Notifier{url: strings.TrimSpace(url), client: &http.Client{Timeout: defaultTimeout}}
}

// OnEvent delivers phase transitions. Failures are logged and dropped.
func (notifier *Notifier) OnEvent(event timekeeper.Event) {
	if event.Type != timekeeper.EventPhaseStart && event.Type != timekeeper.EventPhaseEnd {
		return
	}
	if notifier.url == "" {
		return
	}
	if err := notifier.Post(context.Background(), event); err != nil {
		log.Printf("webhook: deliver to %s failed: %v", notifier.url, err)
	}
}

// Post sends one event.
func (notifier *Notifier) Post(ctx context.Context, event timekeeper.Event) error {
	body := Payload{
		Event:     event.Type,
		Phase:     event.Phase,
		Outcome:   event.Outcome,
		Cycle:     event.Cycle,
		Remaining: event.Remaining,
		Total:     event.Total,
		HardBreak: event.HardBreak,
		RunID:     event.RunID,
		TS:        event.At.UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, notifier.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RunePause-Event", string(event.Type))
	req.Header.Set("X-RunePause-Delivery", uuid.NewString())

	res, err := notifier.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return nil
}
