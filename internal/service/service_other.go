//go:build !linux && !windows

package service

import "errors"

type unsupportedService struct{}

// New creates a new platform-specific service manager
func New() Service {
	return &unsupportedService{}
}

func (s *unsupportedService) Install() error {
	return errors.New("auto-start service is not supported on this platform")
}

func (s *unsupportedService) Uninstall() error {
	return ErrNotInstalled
}

func (s *unsupportedService) IsInstalled() bool {
	return false
}

func (s *unsupportedService) Status() (string, error) {
	return "not supported", nil
}
