package history

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"runepause/internal/core/timekeeper"
)

// Recorder stores every phase_end event it receives.
type Recorder struct {
	store   Store
	timeout time.Duration
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, timeout: 5 * time.Second}
}

// OnEvent implements the controller's listener contract.
func (recorder *Recorder) OnEvent(event timekeeper.Event) {
	if event.Type != timekeeper.EventPhaseEnd {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recorder.timeout)
	defer cancel()

	record := Record{
		ID:             uuid.NewString(),
		RunID:          event.RunID,
		Phase:          event.Phase,
		Outcome:        event.Outcome,
		Cycle:          event.Cycle,
		PlannedSeconds: event.Total,
		ElapsedSeconds: event.Elapsed(),
		EndedAt:        event.At,
	}
	if err := recorder.store.Insert(ctx, record); err != nil {
		log.Printf("history: record %s phase: %v", event.Phase, err)
	}
}
