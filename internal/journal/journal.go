// Package journal appends break entries to a daily note in a Markdown
// vault laid out like Obsidian's (<vault>/Daily/YYYY-MM-DD.md).
package journal

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"runepause/internal/core/timekeeper"
)

// Journal writes pause entries into a vault.
type Journal struct {
	vault    string
	location *time.Location
}

// New returns a Journal for vault. Entry timestamps use the local zone.
func New(vault string) *Journal {
	return &Journal{vault: vault, location: time.Local}
}

// NotePath returns the daily note that holds entries for at.
func (journal *Journal) NotePath(at time.Time) string {
	return filepath.Join(journal.vault, "Daily", at.In(journal.location).Format("2006-01-02")+".md")
}

// Write appends one pause entry stamped with at.
func (journal *Journal) Write(at time.Time, summary string) error {
	path := journal.NotePath(at)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create daily note directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open daily note: %w", err)
	}
	line := fmt.Sprintf("\n- ⏸ %s — %s\n", at.In(journal.location).Format("15:04"), summary)
	if _, err := file.WriteString(line); err != nil {
		file.Close()
		return fmt.Errorf("append daily note: %w", err)
	}
	return file.Close()
}

// OnEvent journals every finished break.
func (journal *Journal) OnEvent(event timekeeper.Event) {
	if event.Type != timekeeper.EventPhaseEnd || !event.Phase.IsBreak() {
		return
	}
	if err := journal.Write(event.At, Summary(event)); err != nil {
		log.Printf("journal: write entry: %v", err)
	}
}

// Summary describes a finished break, e.g. "micro break skipped after 00:45 of 02:00".
func Summary(event timekeeper.Event) string {
	name := "break"
	if event.Phase == timekeeper.PhaseMicroBreak {
		name = "micro break"
	}
	if event.Outcome == timekeeper.OutcomeCompleted {
		return fmt.Sprintf("%s completed (%s)", name, clockText(event.Total))
	}
	return fmt.Sprintf("%s %s after %s of %s", name, event.Outcome, clockText(event.Elapsed()), clockText(event.Total))
}

func clockText(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
