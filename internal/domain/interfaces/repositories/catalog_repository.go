// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

// CatalogRepository defines the interface for accessing catalog entries
type CatalogRepository interface {
	// GetEntry returns the best entry for a package on a platform version
	GetEntry(ctx context.Context, packageName string, sdkVersion int) (*entities.CatalogEntry, error)

	// ListEntries returns all catalog entries
	ListEntries(ctx context.Context) ([]*entities.CatalogEntry, error)
}

// ScanRepository stores scan results by file hash
type ScanRepository interface {
	// GetByHash returns nil, nil when the hash has never been scanned
	GetByHash(ctx context.Context, sha256 string) (*entities.ScanResult, error)

	// Upsert inserts or replaces the result for its hash
	Upsert(ctx context.Context, result *entities.ScanResult) error
}
