package gateways

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

// CommandRunner runs an external command and returns its combined stderr on failure
type CommandRunner func(ctx context.Context, name string, args ...string) error

// SystemInstaller hands package files to the platform's default opener
type SystemInstaller struct {
	goos    string
	timeout time.Duration
	run     CommandRunner
}

// NewSystemInstaller creates an installer for the running platform
func NewSystemInstaller() *SystemInstaller {
	return &SystemInstaller{
		goos:    runtime.GOOS,
		timeout: 30 * time.Second,
		run:     runCommand,
	}
}

// NewSystemInstallerWithRunner creates an installer with a custom command runner
func NewSystemInstallerWithRunner(goos string, run CommandRunner) *SystemInstaller {
	installer := NewSystemInstaller()
	installer.goos = goos
	installer.run = run
	return installer
}

// Launch opens the package with the platform installer
func (s *SystemInstaller) Launch(ctx context.Context, filePath string) error {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrInvalid, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("%w: package not found at %s", entities.ErrIO, abs)
	}

	name, args := s.openerCommand(abs)

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.run(execCtx, name, args...); err != nil {
		return fmt.Errorf("failed to launch installer (install manually from %s): %w", abs, err)
	}
	return nil
}

func (s *SystemInstaller) openerCommand(path string) (string, []string) {
	switch s.goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	//nolint:gosec // G204: Opener is fixed per platform, path is the verified package
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
