package yaml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
)

// CatalogRepository implements repositories.CatalogRepository using YAML files,
// one <package_name>.yml per package
type CatalogRepository struct {
	catalogDir string
	parser     *CatalogParser
	logger     interfaces.Logger
}

// NewCatalogRepository creates a new YAML-based catalog repository
func NewCatalogRepository(catalogDir string, logger interfaces.Logger) *CatalogRepository {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &CatalogRepository{
		catalogDir: catalogDir,
		parser:     NewCatalogParser(),
		logger:     logger,
	}
}

// GetEntry returns the release with the highest min_sdk not above sdkVersion
func (r *CatalogRepository) GetEntry(_ context.Context, packageName string, sdkVersion int) (*entities.CatalogEntry, error) {
	if packageName == "" || strings.ContainsAny(packageName, `/\`) || strings.Contains(packageName, "..") {
		return nil, fmt.Errorf("%w: bad package name %q", entities.ErrInvalid, packageName)
	}

	filePath := filepath.Join(r.catalogDir, packageName+".yml")
	releases, err := r.parser.ParseFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: package %s", entities.ErrNotFound, packageName)
		}
		return nil, err
	}

	var best *entities.CatalogEntry
	for _, rel := range releases {
		if !rel.SupportsSDK(sdkVersion) {
			continue
		}
		if best == nil || rel.MinSDK > best.MinSDK {
			best = rel
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no release of %s for sdk %d", entities.ErrNotFound, packageName, sdkVersion)
	}
	return best, nil
}

// ListEntries returns every release of every package, sorted by package name
func (r *CatalogRepository) ListEntries(_ context.Context) ([]*entities.CatalogEntry, error) {
	files, err := os.ReadDir(r.catalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	result := make([]*entities.CatalogEntry, 0)
	for _, file := range files {
		// Skip non-YAML files
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".yml") {
			continue
		}

		releases, err := r.parser.ParseFile(filepath.Join(r.catalogDir, file.Name()))
		if err != nil {
			// Log warning but continue processing other files
			r.logger.Warn("skipping catalog file", interfaces.F("file", file.Name()), interfaces.F("error", err))
			continue
		}

		result = append(result, releases...)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].PackageName != result[j].PackageName {
			return result[i].PackageName < result[j].PackageName
		}
		return result[i].MinSDK < result[j].MinSDK
	})

	return result, nil
}
