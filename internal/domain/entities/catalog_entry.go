// Package entities defines core domain models and data structures.
package entities

// CatalogEntry is the catalog's answer for an intercepted package
type CatalogEntry struct {
	PackageName        string `json:"package_name" yaml:"package_name"`
	Title              string `json:"title" yaml:"title"`
	VersionName        string `json:"version_name" yaml:"version_name"`
	DownloadURL        string `json:"download_url" yaml:"download_url"` // Server-relative path
	SHA256             string `json:"sha256" yaml:"sha256"`
	MinSDK             int    `json:"min_sdk" yaml:"min_sdk"`
	PermissionsSummary string `json:"permissions_summary" yaml:"permissions_summary"`
	Category           string `json:"category,omitempty" yaml:"category"`
	Description        string `json:"description,omitempty" yaml:"description"`
	SizeBytes          int64  `json:"size_bytes,omitempty" yaml:"size_bytes"`
	SignatureURL       string `json:"signature_url,omitempty" yaml:"signature_url"` // Optional detached OpenPGP signature
}

// SupportsSDK reports whether the entry can be installed on the given platform version
func (e *CatalogEntry) SupportsSDK(sdkVersion int) bool {
	return e.MinSDK <= sdkVersion
}

// Package converts the entry into the secondary client's package descriptor
func (e *CatalogEntry) Package() Package {
	return Package{
		Name:        e.PackageName,
		Version:     e.VersionName,
		Category:    e.Category,
		Description: e.Description,
		DownloadURL: e.DownloadURL,
		SHA256:      e.SHA256,
		SizeBytes:   e.SizeBytes,
	}
}
