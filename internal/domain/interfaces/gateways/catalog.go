// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

// ProgressFunc receives download progress; total is -1 when unknown
type ProgressFunc func(written, total int64)

// CatalogGateway defines operations against the catalog server
type CatalogGateway interface {
	// GetAppDetails looks up the catalog entry for a package and platform version
	GetAppDetails(ctx context.Context, packageName string, sdkVersion int) (*entities.CatalogEntry, error)

	// ListPackages returns every package the catalog offers
	ListPackages(ctx context.Context) ([]entities.Package, error)

	// Upload sends a package file to the catalog
	Upload(ctx context.Context, filePath string) (*UploadResult, error)

	// RemoteVerdict asks the catalog what it knows about a hash
	RemoteVerdict(ctx context.Context, sha256, packageName string) (entities.Verdict, error)

	// ResolveURL turns a server-relative path into an absolute URL
	ResolveURL(path string) string
}

// UploadResult is the catalog's acknowledgement of an upload
type UploadResult struct {
	OK       bool             `json:"ok"`
	Filename string           `json:"filename"`
	SHA256   string           `json:"sha256"`
	Verdict  entities.Verdict `json:"verdict,omitempty"`
}

// Downloader fetches package files
type Downloader interface {
	Download(ctx context.Context, url, dest string, progress ProgressFunc) (int64, error)
}

// Installer hands a verified package to the platform installer
type Installer interface {
	Launch(ctx context.Context, filePath string) error
}
