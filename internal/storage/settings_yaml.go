package storage

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"runepause/internal/platform"
	"runepause/internal/preferences"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	Version              int               `yaml:"version"`
	FocusSeconds         int64             `yaml:"focus_seconds"`
	BreakSeconds         int64             `yaml:"break_seconds"`
	MicroBreakSeconds    int64             `yaml:"micro_break_seconds"`
	MicroBreakEvery      int               `yaml:"micro_break_every"`
	HardBreak            bool              `yaml:"hard_break"`
	SnoozeSeconds        int64             `yaml:"snooze_seconds"`
	IdleEnabled          bool              `yaml:"idle_enabled"`
	IdleThresholdSeconds int64             `yaml:"idle_threshold_seconds"`
	Theme                string            `yaml:"theme"`
	Hotkeys              map[string]string `yaml:"hotkeys"`
	ObsidianVault        string            `yaml:"obsidian_vault"`
	WebhookURL           string            `yaml:"webhook_url"`
	ForceBlocks          []string          `yaml:"force_blocks"`
	OverlayOpacity       float64           `yaml:"overlay_opacity"`
	Fullscreen           bool              `yaml:"fullscreen"`
}

// Store persists user preferences as a YAML file.
type Store struct {
	path string
}

// NewStore returns a Store under the OS configuration directory:
// <config dir>/<appName>/settings.yaml.
func NewStore(appName string) (*Store, error) {
	configDir, err := platform.NewService().GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user config dir: %w", err)
	}
	return NewStoreAt(filepath.Join(configDir, appName)), nil
}

// NewStoreAt returns a Store that keeps its file in dir.
func NewStoreAt(dir string) *Store {
	return &Store{path: filepath.Join(dir, settingsFileName)}
}

// Path returns the settings file location.
func (store *Store) Path() string {
	return store.path
}

// Load reads user preferences from YAML. A missing file yields the
// defaults; an unreadable or corrupt file is logged and also yields the
// defaults. Keys absent from the file keep their default values.
func (store *Store) Load() preferences.Settings {
	settings, err := store.read()
	if err != nil {
		log.Printf("storage: load settings: %v", err)
		return preferences.DefaultSettings()
	}
	return settings
}

func (store *Store) read() (preferences.Settings, error) {
	defaults := preferences.DefaultSettings()
	rawData, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("read settings file: %w", err)
	}

	// Scalars absent from the file keep their prefilled defaults. Maps would
	// be merged by the decoder, so hotkeys are only defaulted when the key is
	// missing altogether.
	fileData := toYAML(defaults)
	fileData.Hotkeys = nil
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return defaults, fmt.Errorf("parse settings yaml: %w", err)
	}
	var keys map[string]yaml.Node
	if err := yaml.Unmarshal(rawData, &keys); err != nil {
		return defaults, fmt.Errorf("parse settings yaml: %w", err)
	}
	if _, ok := keys["hotkeys"]; !ok {
		fileData.Hotkeys = defaults.Hotkeys
	}
	return fromYAML(fileData), nil
}

// Save writes user preferences to YAML. The file is replaced atomically so
// a crash never leaves a truncated document behind. Values that Load could
// not return unchanged are rejected: durations must be non-negative whole
// seconds, micro_break_every non-negative and the overlay opacity within
// [0.7, 0.95]. Nil hotkeys and force blocks are stored as empty.
func (store *Store) Save(settings preferences.Settings) error {
	if err := validate(settings); err != nil {
		return err
	}
	dir := filepath.Dir(store.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	settings.Version = preferences.CurrentVersion
	serialized, err := yaml.Marshal(toYAML(settings))
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	tmp, err := os.CreateTemp(dir, settingsFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(serialized); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), store.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}

	return nil
}

func validate(settings preferences.Settings) error {
	durations := []struct {
		key   string
		value time.Duration
	}{
		{"focus_seconds", settings.FocusDuration},
		{"break_seconds", settings.BreakDuration},
		{"micro_break_seconds", settings.MicroBreakDuration},
		{"snooze_seconds", settings.SnoozeDuration},
		{"idle_threshold_seconds", settings.IdleThreshold},
	}
	for _, field := range durations {
		if field.value < 0 || field.value%time.Second != 0 {
			return fmt.Errorf("invalid %s: %v is not a non-negative whole number of seconds", field.key, field.value)
		}
	}
	if settings.MicroBreakEvery < 0 {
		return fmt.Errorf("invalid micro_break_every: %d", settings.MicroBreakEvery)
	}
	if !validOpacity(settings.OverlayOpacity) {
		return fmt.Errorf("invalid overlay_opacity: %v outside [0.7, 0.95]", settings.OverlayOpacity)
	}
	return nil
}

func validOpacity(opacity float64) bool {
	return opacity >= 0.7 && opacity <= 0.95
}

func toYAML(settings preferences.Settings) yamlSettings {
	if settings.Hotkeys == nil {
		settings.Hotkeys = map[string]string{}
	}
	if settings.ForceBlocks == nil {
		settings.ForceBlocks = []string{}
	}
	return yamlSettings{
		Version:              settings.Version,
		FocusSeconds:         seconds(settings.FocusDuration),
		BreakSeconds:         seconds(settings.BreakDuration),
		MicroBreakSeconds:    seconds(settings.MicroBreakDuration),
		MicroBreakEvery:      settings.MicroBreakEvery,
		HardBreak:            settings.HardBreak,
		SnoozeSeconds:        seconds(settings.SnoozeDuration),
		IdleEnabled:          settings.IdleEnabled,
		IdleThresholdSeconds: seconds(settings.IdleThreshold),
		Theme:                settings.Theme,
		Hotkeys:              settings.Hotkeys,
		ObsidianVault:        settings.ObsidianVault,
		WebhookURL:           settings.WebhookURL,
		ForceBlocks:          settings.ForceBlocks,
		OverlayOpacity:       settings.OverlayOpacity,
		Fullscreen:           settings.Fullscreen,
	}
}

func fromYAML(fileData yamlSettings) preferences.Settings {
	settings := preferences.Settings{
		Version:            fileData.Version,
		FocusDuration:      duration(fileData.FocusSeconds),
		BreakDuration:      duration(fileData.BreakSeconds),
		MicroBreakDuration: duration(fileData.MicroBreakSeconds),
		MicroBreakEvery:    fileData.MicroBreakEvery,
		HardBreak:          fileData.HardBreak,
		SnoozeDuration:     duration(fileData.SnoozeSeconds),
		IdleEnabled:        fileData.IdleEnabled,
		IdleThreshold:      duration(fileData.IdleThresholdSeconds),
		Theme:              fileData.Theme,
		Hotkeys:            fileData.Hotkeys,
		ObsidianVault:      fileData.ObsidianVault,
		WebhookURL:         fileData.WebhookURL,
		ForceBlocks:        fileData.ForceBlocks,
		OverlayOpacity:     fileData.OverlayOpacity,
		Fullscreen:         fileData.Fullscreen,
	}
	if settings.Hotkeys == nil {
		settings.Hotkeys = map[string]string{}
	}
	if settings.ForceBlocks == nil {
		settings.ForceBlocks = []string{}
	}
	if settings.MicroBreakEvery < 0 {
		settings.MicroBreakEvery = 0
	}
	if !validOpacity(settings.OverlayOpacity) {
		settings.OverlayOpacity = preferences.DefaultSettings().OverlayOpacity
	}
	return settings
}

func seconds(value time.Duration) int64 {
	return int64(value / time.Second)
}

func duration(value int64) time.Duration {
	if value < 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}
