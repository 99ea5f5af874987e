package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"runepause/internal/server"
)

// parseSettingAssignments turns key=value arguments into a settings patch.
func parseSettingAssignments(args []string) (server.SettingsPatch, error) {
	var patch server.SettingsPatch
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return patch, fmt.Errorf("expected key=value, got %q", arg)
		}
		value = strings.TrimSpace(value)
		if err := applyAssignment(&patch, key, value); err != nil {
			return patch, fmt.Errorf("%s: %w", key, err)
		}
	}
	return patch, nil
}

func applyAssignment(patch *server.SettingsPatch, key, value string) error {
	if action, ok := strings.CutPrefix(key, "hotkey."); ok {
		if action == "" {
			return fmt.Errorf("missing hotkey action")
		}
		if patch.Hotkeys == nil {
			patch.Hotkeys = map[string]string{}
		}
		patch.Hotkeys[action] = value
		return nil
	}

	switch key {
	case "focus":
		return setSeconds(&patch.FocusSeconds, value)
	case "break":
		return setSeconds(&patch.BreakSeconds, value)
	case "micro-break":
		return setSeconds(&patch.MicroBreakSeconds, value)
	case "snooze":
		return setSeconds(&patch.SnoozeSeconds, value)
	case "idle-threshold":
		return setSeconds(&patch.IdleThresholdSeconds, value)
	case "micro-break-every":
		every, err := strconv.Atoi(value)
		if err != nil || every < 0 {
			return fmt.Errorf("invalid count %q", value)
		}
		patch.MicroBreakEvery = &every
	case "hard-break":
		return setBool(&patch.HardBreak, value)
	case "idle":
		return setBool(&patch.IdleEnabled, value)
	case "fullscreen":
		return setBool(&patch.Fullscreen, value)
	case "overlay-opacity":
		opacity, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", value)
		}
		patch.OverlayOpacity = &opacity
	case "theme":
		patch.Theme = &value
	case "obsidian-vault":
		patch.ObsidianVault = &value
	case "webhook-url":
		patch.WebhookURL = &value
	case "force-blocks":
		blocks := []string{}
		for _, block := range strings.Split(value, ",") {
			if block = strings.TrimSpace(block); block != "" {
				blocks = append(blocks, block)
			}
		}
		patch.ForceBlocks = blocks
	default:
		return fmt.Errorf("unknown setting")
	}
	return nil
}

// parseDuration accepts Go durations ("25m", "90s") or whole seconds.
func parseDuration(value string) (time.Duration, error) {
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("negative duration %q", value)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	return duration, nil
}

func setSeconds(target **int64, value string) error {
	duration, err := parseDuration(value)
	if err != nil {
		return err
	}
	seconds := int64(duration / time.Second)
	*target = &seconds
	return nil
}

func setBool(target **bool, value string) error {
	flag, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", value)
	}
	*target = &flag
	return nil
}
