//go:build !linux && !darwin && !windows

package platform

import "path/filepath"

func (service *platformService) EnableAutostart(appName string, command []string) error {
	return ErrAutostartUnsupported
}

func (service *platformService) DisableAutostart(appName string) error {
	return ErrAutostartUnsupported
}

func (service *platformService) AutostartEnabled(appName string) (bool, error) {
	return false, ErrAutostartUnsupported
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}
