package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"runepause/internal/core/timekeeper"
	"runepause/internal/server"
	"runepause/internal/ui/presenter"
)

var (
	focusStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	breakStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E8BE42"))
	idleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8A8A8A"))
	alertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 2)
)

// colorOutput reports whether stdout is an interactive terminal.
func colorOutput() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func phaseStyle(phase string) lipgloss.Style {
	switch timekeeper.Phase(phase) {
	case timekeeper.PhaseFocus:
		return focusStyle
	case timekeeper.PhaseBreak, timekeeper.PhaseMicroBreak:
		return breakStyle
	default:
		return idleStyle
	}
}

func countdown(seconds int) string {
	return presenter.FormatRemaining(time.Duration(seconds) * time.Second)
}

func statusFlags(status server.StatusBody) []string {
	var flags []string
	switch {
	case status.AutoPaused:
		flags = append(flags, "away")
	case status.Paused:
		flags = append(flags, "paused")
	}
	if status.HardBreak && timekeeper.Phase(status.Phase).IsBreak() {
		flags = append(flags, "hard break")
	}
	return flags
}

// renderStatus formats the timer state. Plain output is a single line.
func renderStatus(status server.StatusBody, color bool) string {
	if !status.Running {
		line := "stopped"
		if status.LastError != "" {
			line += ": " + status.LastError
		}
		if !color {
			return line
		}
		if status.LastError != "" {
			return boxStyle.Render(idleStyle.Render("Stopped") + "\n" + alertStyle.Render(status.LastError))
		}
		return boxStyle.Render(idleStyle.Render("Stopped"))
	}

	flags := statusFlags(status)
	if !color {
		line := fmt.Sprintf("%s %s/%s cycle %d", status.Phase, countdown(status.Remaining), countdown(status.Total), status.Cycle)
		if len(flags) > 0 {
			line += " (" + strings.Join(flags, ", ") + ")"
		}
		return line
	}

	name := presenter.PhaseName(timekeeper.Phase(status.Phase))
	header := phaseStyle(status.Phase).Render(name) + "  " + lipgloss.NewStyle().Bold(true).Render(countdown(status.Remaining))
	details := dimStyle.Render(fmt.Sprintf("cycle %d, %s total", status.Cycle, countdown(status.Total)))
	lines := []string{header, details}
	if len(flags) > 0 {
		lines = append(lines, alertStyle.Render(strings.Join(flags, ", ")))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderEvent formats one streamed engine event as a log line.
func renderEvent(event timekeeper.Event, color bool) string {
	stamp := event.At.Local().Format("15:04:05")
	phase := string(event.Phase)
	text := fmt.Sprintf("%s %s", countdown(event.Remaining), eventDetail(event))
	if !color {
		return strings.TrimSpace(fmt.Sprintf("%s %-16s %-11s %s", stamp, event.Type, phase, text))
	}
	return strings.TrimSpace(fmt.Sprintf("%s %-16s %s %s",
		dimStyle.Render(stamp), string(event.Type), phaseStyle(phase).Render(fmt.Sprintf("%-11s", phase)), text))
}

func eventDetail(event timekeeper.Event) string {
	switch event.Type {
	case timekeeper.EventPhaseEnd:
		return string(event.Outcome)
	case timekeeper.EventPhaseStart:
		detail := fmt.Sprintf("cycle %d", event.Cycle)
		if event.HardBreak && event.Phase.IsBreak() {
			detail += ", hard break"
		}
		return detail
	case timekeeper.EventIdleError:
		return event.Message
	default:
		return ""
	}
}
