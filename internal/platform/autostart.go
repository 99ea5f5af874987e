package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrAutostartUnsupported is returned where no login-item mechanism is known.
var ErrAutostartUnsupported = errors.New("autostart unsupported on this platform")

// Service defines OS-specific helpers needed by the application.
type Service interface {
	GetConfigDir() (string, error)
	// EnableAutostart registers command (executable followed by its
	// arguments) to run at login.
	EnableAutostart(appName string, command []string) error
	DisableAutostart(appName string) error
	AutostartEnabled(appName string) (bool, error)
}

type platformService struct {
	configDir string
}

// NewService returns a platform-specific implementation.
func NewService() Service {
	return &platformService{}
}

// NewServiceAt returns a Service rooted at configDir instead of the OS
// configuration directory.
func NewServiceAt(configDir string) Service {
	return &platformService{configDir: configDir}
}

// GetConfigDir returns the OS-standard configuration directory.
func (service *platformService) GetConfigDir() (string, error) {
	if service.configDir != "" {
		return service.configDir, nil
	}

	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(homeDir), nil
}

func validateAutostart(appName string, command []string) error {
	if strings.TrimSpace(appName) == "" {
		return fmt.Errorf("enable autostart: app name is empty")
	}
	if len(command) == 0 || command[0] == "" {
		return fmt.Errorf("enable autostart: exec path is empty")
	}
	return nil
}

// appSlug turns an application name into a lowercase, dash-separated
// identifier for file names and labels.
func appSlug(appName string) string {
	name := strings.TrimSpace(appName)
	if name == "" {
		name = "runepause"
	}
	name = strings.ToLower(name)
	return strings.ReplaceAll(name, " ", "-")
}
