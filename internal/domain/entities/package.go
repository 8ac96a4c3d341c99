package entities

// Package is the flat package descriptor served by the catalog list endpoint
type Package struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	DownloadURL string `json:"download_url"`
	SHA256      string `json:"sha256,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

// ID identifies a package release as name:version
func (p Package) ID() string {
	return p.Name + ":" + p.Version
}

// PackageInfo is what could be recovered from a downloaded package file
type PackageInfo struct {
	PackageName          string
	VersionName          string
	Permissions          []string
	SignatureFingerprint string // SHA-256 of the signing block, empty if unsigned
}
