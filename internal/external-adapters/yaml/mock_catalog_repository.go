package yaml

import (
	"context"
	"fmt"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

// Fixed values returned by the mock catalog
const (
	MockVersionName        = "1.0.1-old"
	MockSHA256             = "a94a8fe5ccb19ba61c4c0873d391e987982fbbd3"
	MockMinSDK             = 8
	MockPermissionsSummary = "Internet, Contacts, GPS (verified)"
)

// MockCatalogRepository answers every lookup with an archived placeholder entry
type MockCatalogRepository struct{}

// NewMockCatalogRepository creates the mock catalog
func NewMockCatalogRepository() *MockCatalogRepository {
	return &MockCatalogRepository{}
}

// GetEntry fabricates an archived entry for any package
func (m *MockCatalogRepository) GetEntry(_ context.Context, packageName string, sdkVersion int) (*entities.CatalogEntry, error) {
	if packageName == "" {
		return nil, fmt.Errorf("%w: package name is required", entities.ErrInvalid)
	}

	return &entities.CatalogEntry{
		PackageName:        packageName,
		Title:              "Archived version of " + packageName,
		VersionName:        MockVersionName,
		DownloadURL:        fmt.Sprintf("/download/%s_%d.apk", packageName, sdkVersion),
		SHA256:             MockSHA256,
		MinSDK:             MockMinSDK,
		PermissionsSummary: MockPermissionsSummary,
	}, nil
}

// ListEntries returns nothing; the mock has no fixed inventory
func (m *MockCatalogRepository) ListEntries(_ context.Context) ([]*entities.CatalogEntry, error) {
	return []*entities.CatalogEntry{}, nil
}
