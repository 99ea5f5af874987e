//go:build linux

package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutostartDesktopEntryLifecycle(t *testing.T) {
	service := NewServiceAt(t.TempDir())

	enabled, err := service.AutostartEnabled("RunePause")
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, service.EnableAutostart("RunePause", []string{"/opt/rune pause/runepause", "run"}))
	enabled, err = service.AutostartEnabled("RunePause")
	require.NoError(t, err)
	assert.True(t, enabled)

	configDir, err := service.GetConfigDir()
	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(configDir, "autostart", "runepause.desktop"))
	require.NoError(t, err)
	assert.Contains(t, string(content), `Exec="/opt/rune pause/runepause" run`)
	assert.Contains(t, string(content), "Name=RunePause")

	require.NoError(t, service.DisableAutostart("RunePause"))
	require.NoError(t, service.DisableAutostart("RunePause"))
	enabled, err = service.AutostartEnabled("RunePause")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestEnableAutostartValidates(t *testing.T) {
	service := NewServiceAt(t.TempDir())
	assert.Error(t, service.EnableAutostart("", []string{"/bin/true"}))
	assert.Error(t, service.EnableAutostart("RunePause", nil))
}

func TestParseIdleMillis(t *testing.T) {
	idle, err := parseIdleMillis("1500\n")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), idle.Milliseconds())

	idle, err = parseIdleMillis("-3")
	require.NoError(t, err)
	assert.Zero(t, idle)

	_, err = parseIdleMillis("n/a")
	assert.Error(t, err)
}
