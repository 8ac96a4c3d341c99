package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

func TestHTTPCatalogGateway_GetAppDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/apps/details/com.example.app" {
			t.Errorf("Path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("sdk_version"); got != "19" {
			t.Errorf("sdk_version = %s, want 19", got)
		}
		_ = json.NewEncoder(w).Encode(entities.CatalogEntry{
			PackageName:        "com.example.app",
			Title:              "Example",
			VersionName:        "1.0.1-old",
			DownloadURL:        "/download/com.example.app_19.apk",
			SHA256:             "abc",
			MinSDK:             8,
			PermissionsSummary: "Internet",
		})
	}))
	defer server.Close()

	gateway := NewHTTPCatalogGateway(server.URL + "/")
	entry, err := gateway.GetAppDetails(context.Background(), "com.example.app", 19)
	if err != nil {
		t.Fatalf("GetAppDetails() error = %v", err)
	}

	if entry.Title != "Example" || entry.MinSDK != 8 || entry.DownloadURL != "/download/com.example.app_19.apk" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestHTTPCatalogGateway_GetAppDetails_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer server.Close()

	_, err := NewHTTPCatalogGateway(server.URL).GetAppDetails(context.Background(), "missing", 21)
	if !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("GetAppDetails() error = %v, want ErrNotFound", err)
	}
}

func TestHTTPCatalogGateway_GetAppDetails_EmptyName(t *testing.T) {
	_, err := NewHTTPCatalogGateway("http://127.0.0.1:1").GetAppDetails(context.Background(), "", 21)
	if !errors.Is(err, entities.ErrInvalid) {
		t.Fatalf("GetAppDetails() error = %v, want ErrInvalid", err)
	}
}

func TestHTTPCatalogGateway_ListPackages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/apps" {
			t.Errorf("Path = %s, want /apps", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"name":"a","version":"1","category":"tools","download_url":"/download/a.apk"}]`))
	}))
	defer server.Close()

	packages, err := NewHTTPCatalogGateway(server.URL).ListPackages(context.Background())
	if err != nil {
		t.Fatalf("ListPackages() error = %v", err)
	}
	if len(packages) != 1 || packages[0].ID() != "a:1" {
		t.Errorf("unexpected packages: %+v", packages)
	}
}

func TestHTTPCatalogGateway_Upload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile(UploadField)
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "package body" || header.Filename != "app.apk" {
			t.Errorf("unexpected upload %q %q", header.Filename, data)
		}
		_, _ = w.Write([]byte(`{"ok":true,"filename":"stored-id","sha256":"ff"}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "app.apk")
	if err := os.WriteFile(path, []byte("package body"), 0600); err != nil {
		t.Fatal(err)
	}

	result, err := NewHTTPCatalogGateway(server.URL).Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !result.OK || result.Filename != "stored-id" || result.SHA256 != "ff" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestHTTPCatalogGateway_RemoteVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode error = %v", err)
		}
		if req.SHA256 != "abc" || req.PackageName != "com.example" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(ScanResponse{Verdict: entities.VerdictSuspicious})
	}))
	defer server.Close()

	verdict, err := NewHTTPCatalogGateway(server.URL).RemoteVerdict(context.Background(), "abc", "com.example")
	if err != nil {
		t.Fatalf("RemoteVerdict() error = %v", err)
	}
	if verdict != entities.VerdictSuspicious {
		t.Errorf("verdict = %s, want suspicious", verdict)
	}
}

func TestHTTPCatalogGateway_ResolveURL(t *testing.T) {
	gateway := NewHTTPCatalogGateway("https://catalog.example.com/")

	tests := map[string]string{
		"/download/a.apk":               "https://catalog.example.com/download/a.apk",
		"download/a.apk":                "https://catalog.example.com/download/a.apk",
		"https://cdn.example.com/a.apk": "https://cdn.example.com/a.apk",
	}
	for in, want := range tests {
		if got := gateway.ResolveURL(in); got != want {
			t.Errorf("ResolveURL(%q) = %q, want %q", in, got, want)
		}
	}
}
