// Package yaml provides YAML-based catalog parsing and repository implementations.
package yaml

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlCatalogPackage represents one package file of the catalog
type yamlCatalogPackage struct {
	PackageName        string        `yaml:"package_name"`
	Title              string        `yaml:"title"`
	Category           string        `yaml:"category"`
	Description        string        `yaml:"description"`
	PermissionsSummary string        `yaml:"permissions_summary"`
	Releases           []yamlRelease `yaml:"releases"`
}

// yamlRelease is a single build of the package for a minimum platform version
type yamlRelease struct {
	VersionName        string `yaml:"version_name"`
	MinSDK             int    `yaml:"min_sdk"`
	DownloadURL        string `yaml:"download_url"`
	SHA256             string `yaml:"sha256"`
	SizeBytes          int64  `yaml:"size_bytes"`
	SignatureURL       string `yaml:"signature_url"`
	PermissionsSummary string `yaml:"permissions_summary"`
}

// CatalogParser parses YAML catalog package files
type CatalogParser struct{}

// NewCatalogParser creates a new YAML parser
func NewCatalogParser() *CatalogParser {
	return &CatalogParser{}
}

// ParseFile parses a YAML package file into catalog entries, one per release
func (p *CatalogParser) ParseFile(filePath string) ([]*entities.CatalogEntry, error) {
	//nolint:gosec // G304: filePath is a package file from the catalog directory
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into catalog entries
func (p *CatalogParser) Parse(data []byte) ([]*entities.CatalogEntry, error) {
	var pkg yamlCatalogPackage
	if err := yaml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", entities.ErrInvalid, err)
	}

	// Validate required fields
	if pkg.PackageName == "" {
		return nil, fmt.Errorf("%w: package must have a package_name", entities.ErrInvalid)
	}
	if len(pkg.Releases) == 0 {
		return nil, fmt.Errorf("%w: package %s has no releases", entities.ErrInvalid, pkg.PackageName)
	}

	entries := make([]*entities.CatalogEntry, 0, len(pkg.Releases))
	for i, rel := range pkg.Releases {
		if err := validateRelease(rel); err != nil {
			return nil, fmt.Errorf("%w: %s release %d: %v", entities.ErrInvalid, pkg.PackageName, i, err)
		}
		entries = append(entries, convertRelease(pkg, rel))
	}

	return entries, nil
}

func validateRelease(rel yamlRelease) error {
	if rel.VersionName == "" {
		return fmt.Errorf("missing version_name")
	}
	if rel.DownloadURL == "" {
		return fmt.Errorf("missing download_url")
	}
	if rel.MinSDK < 0 {
		return fmt.Errorf("min_sdk must not be negative")
	}
	if rel.SHA256 != "" {
		if b, err := hex.DecodeString(rel.SHA256); err != nil || len(b) != 32 {
			return fmt.Errorf("sha256 must be 64 hex characters")
		}
	}
	return nil
}

func convertRelease(pkg yamlCatalogPackage, rel yamlRelease) *entities.CatalogEntry {
	title := pkg.Title
	if title == "" {
		title = pkg.PackageName
	}
	summary := rel.PermissionsSummary
	if summary == "" {
		summary = pkg.PermissionsSummary
	}

	return &entities.CatalogEntry{
		PackageName:        pkg.PackageName,
		Title:              title,
		VersionName:        rel.VersionName,
		DownloadURL:        rel.DownloadURL,
		SHA256:             strings.ToLower(rel.SHA256),
		MinSDK:             rel.MinSDK,
		PermissionsSummary: summary,
		Category:           pkg.Category,
		Description:        pkg.Description,
		SizeBytes:          rel.SizeBytes,
		SignatureURL:       rel.SignatureURL,
	}
}
