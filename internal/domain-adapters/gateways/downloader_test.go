package gateways

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

func TestDownloader_Download(t *testing.T) {
	payload := strings.Repeat("apk-bytes-", 5000)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != UserAgent {
			t.Errorf("User-Agent = %q, want %q", ua, UserAgent)
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "cache", "com.example-1.0.apk")

	var lastWritten int64
	calls := 0
	written, err := NewDownloader().Download(context.Background(), server.URL+"/download/x.apk", dest, func(w, _ int64) {
		if w < lastWritten {
			t.Errorf("progress went backwards: %d < %d", w, lastWritten)
		}
		lastWritten = w
		calls++
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if written != int64(len(payload)) {
		t.Errorf("written = %d, want %d", written, len(payload))
	}
	if calls == 0 || lastWritten != written {
		t.Errorf("progress calls = %d, last = %d, want final %d", calls, lastWritten, written)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if string(data) != payload {
		t.Error("downloaded content does not match")
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Error("partial file should be renamed away")
	}
}

func TestDownloader_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "APK File Not Found", http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "missing.apk")
	_, err := NewDownloader().Download(context.Background(), server.URL+"/download/missing.apk", dest, nil)
	if !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("Download() error = %v, want ErrNotFound", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("no file should be created for a failed download")
	}
}

func TestDownloader_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewDownloader().Download(context.Background(), server.URL, filepath.Join(t.TempDir(), "x.apk"), nil)
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestDownloader_InvalidURL(t *testing.T) {
	_, err := NewDownloader().Download(context.Background(), "http://invalid-host-that-does-not-exist.local:9999/x.apk",
		filepath.Join(t.TempDir(), "x.apk"), nil)
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
}
