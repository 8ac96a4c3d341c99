package gateways

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

func TestSystemInstaller_Launch_PlatformOpener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "org.example-1.0.apk")
	if err := os.WriteFile(path, []byte("apk"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		goos     string
		wantName string
		wantArgs []string
	}{
		{"linux", "xdg-open", []string{path}},
		{"darwin", "open", []string{path}},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", path}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			var gotName string
			var gotArgs []string
			installer := NewSystemInstallerWithRunner(tt.goos, func(_ context.Context, name string, args ...string) error {
				gotName = name
				gotArgs = args
				return nil
			})

			if err := installer.Launch(context.Background(), path); err != nil {
				t.Fatalf("Launch() error = %v", err)
			}
			if gotName != tt.wantName {
				t.Errorf("command = %s, want %s", gotName, tt.wantName)
			}
			if strings.Join(gotArgs, " ") != strings.Join(tt.wantArgs, " ") {
				t.Errorf("args = %v, want %v", gotArgs, tt.wantArgs)
			}
		})
	}
}

func TestSystemInstaller_Launch_MissingFile(t *testing.T) {
	called := false
	installer := NewSystemInstallerWithRunner("linux", func(_ context.Context, _ string, _ ...string) error {
		called = true
		return nil
	})

	err := installer.Launch(context.Background(), filepath.Join(t.TempDir(), "missing.apk"))
	if !errors.Is(err, entities.ErrIO) {
		t.Errorf("Launch() error = %v, want ErrIO", err)
	}
	if called {
		t.Error("opener should not run for a missing file")
	}
}

func TestSystemInstaller_Launch_OpenerFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.apk")
	if err := os.WriteFile(path, []byte("apk"), 0600); err != nil {
		t.Fatal(err)
	}

	installer := NewSystemInstallerWithRunner("linux", func(_ context.Context, _ string, _ ...string) error {
		return errors.New("no display")
	})

	err := installer.Launch(context.Background(), path)
	if err == nil {
		t.Fatal("expected error when opener fails")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error should name the saved path, got: %v", err)
	}
}
