//go:build linux

package service

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	serviceName     = "pcsc-agent"
	serviceTemplate = `[Unit]
Description=PC/SC Agent - Local smart card reader service
After=pcscd.service
Wants=pcscd.service

[Service]
Type=simple
ExecStart={{.ExecutablePath}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`
)

type linuxService struct{}

// New creates a new platform-specific service manager
func New() Service {
	return &linuxService{}
}

func (s *linuxService) unitPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "systemd", "user", serviceName+".service")
}

func (s *linuxService) Install() error {
	if s.IsInstalled() {
		return ErrAlreadyInstalled
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	unitDir := filepath.Dir(s.unitPath())
	if err := os.MkdirAll(unitDir, 0755); err != nil {
		return fmt.Errorf("failed to create systemd user directory: %w", err)
	}

	tmpl, err := template.New("unit").Parse(serviceTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse unit template: %w", err)
	}

	f, err := os.Create(s.unitPath())
	if err != nil {
		return fmt.Errorf("failed to create unit file: %w", err)
	}
	defer f.Close()

	data := struct{ ExecutablePath string }{ExecutablePath: execPath}
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}

	if err := s.runSystemctl("daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	if err := s.runSystemctl("enable", serviceName+".service"); err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}
	if err := s.runSystemctl("start", serviceName+".service"); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	return nil
}

func (s *linuxService) Uninstall() error {
	if !s.IsInstalled() {
		return ErrNotInstalled
	}

	s.runSystemctl("stop", serviceName+".service")
	s.runSystemctl("disable", serviceName+".service")

	if err := os.Remove(s.unitPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}

	s.runSystemctl("daemon-reload")
	return nil
}

func (s *linuxService) IsInstalled() bool {
	_, err := os.Stat(s.unitPath())
	return err == nil
}

func (s *linuxService) Status() (string, error) {
	if !s.IsInstalled() {
		return "not installed", nil
	}

	cmd := exec.Command("systemctl", "--user", "is-active", serviceName+".service")
	output, _ := cmd.Output()
	if strings.TrimSpace(string(output)) == "active" {
		return "running", nil
	}
	return "installed but not running", nil
}

func (s *linuxService) runSystemctl(args ...string) error {
	allArgs := append([]string{"--user"}, args...)
	cmd := exec.Command("systemctl", allArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err, string(output))
	}
	return nil
}
