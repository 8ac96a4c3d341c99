package gateways

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
)

const (
	manifestName = "AndroidManifest.xml"
	// Manifests are small; anything larger is not a manifest
	maxManifestSize = 8 << 20
)

const permissionExpr = `[A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*\.permission\.[A-Z0-9_]+`

var (
	permissionPattern = regexp.MustCompile(permissionExpr)
	permissionName    = regexp.MustCompile(`^` + permissionExpr + `$`)
)

// packageInspector reads package identity and requested permissions using pure Go
// Uses archive/zip and encoding/xml - no platform package manager required
type packageInspector struct {
	logger interfaces.Logger
}

// NewPackageInspector creates a new package inspector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewPackageInspector(logger interfaces.Logger) *packageInspector {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &packageInspector{logger: logger}
}

// Inspect extracts what it can from an APK. Files that are not zip archives, and
// archive entries that cannot be read, are skipped so the scan can still rely on the
// hash and reputation lookup.
func (p *packageInspector) Inspect(_ context.Context, filePath string) (*entities.PackageInfo, error) {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			p.logger.Warn("package is not a zip archive", interfaces.F("file", filePath))
			return &entities.PackageInfo{}, nil
		}
		return nil, fmt.Errorf("%w: failed to open package: %v", entities.ErrIO, err)
	}
	//nolint:errcheck // Defer close on read-only archive
	defer r.Close()

	info := &entities.PackageInfo{}

	for _, f := range r.File {
		switch {
		case f.Name == manifestName:
			data, err := readZipEntry(f, maxManifestSize)
			if err != nil {
				p.logger.Warn("skipping unreadable manifest", interfaces.F("file", filePath), interfaces.F("error", err))
				continue
			}
			p.parseManifest(data, info)

		case info.SignatureFingerprint == "" && isSignatureBlock(f.Name):
			data, err := readZipEntry(f, maxManifestSize)
			if err != nil {
				p.logger.Warn("skipping unreadable signature block", interfaces.F("entry", f.Name), interfaces.F("error", err))
				continue
			}
			sum := sha256.Sum256(data)
			info.SignatureFingerprint = hex.EncodeToString(sum[:])
		}
	}

	return info, nil
}

// parseManifest handles both plain XML manifests and compiled binary ones
func (p *packageInspector) parseManifest(data []byte, info *entities.PackageInfo) {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("<")) {
		if err := p.parseTextManifest(trimmed, info); err == nil {
			return
		}
	}

	decoded, err := decodeBinaryManifest(data)
	if err == nil {
		info.PackageName = decoded.PackageName
		info.VersionName = decoded.VersionName
		info.Permissions = decoded.Permissions
		return
	}

	p.logger.Debug("manifest is not well-formed, scanning for permission names", interfaces.F("error", err))
	info.Permissions = scanPermissionStrings(data)
}

type textManifest struct {
	XMLName         xml.Name             `xml:"manifest"`
	Package         string               `xml:"package,attr"`
	VersionName     string               `xml:"versionName,attr"`
	UsesPermissions []textUsesPermission `xml:"uses-permission"`
}

type textUsesPermission struct {
	Name string `xml:"name,attr"`
}

func (p *packageInspector) parseTextManifest(data []byte, info *entities.PackageInfo) error {
	var m textManifest
	if err := xml.Unmarshal(data, &m); err != nil {
		return err
	}

	info.PackageName = m.Package
	info.VersionName = m.VersionName
	for _, perm := range m.UsesPermissions {
		if perm.Name != "" {
			info.Permissions = append(info.Permissions, perm.Name)
		}
	}
	return nil
}

// scanPermissionStrings finds permission names in a manifest that could not be
// decoded, looking at UTF-8 text and at both UTF-16LE alignments
func scanPermissionStrings(data []byte) []string {
	perms := newPermissionSet()

	collect := func(buf []byte) {
		for _, m := range permissionPattern.FindAll(buf, -1) {
			perms.add(string(m))
		}
	}

	collect(data)
	collect(narrowUTF16(data, 0))
	collect(narrowUTF16(data, 1))

	return perms.list
}

// narrowUTF16 keeps printable ASCII code units of a UTF-16LE stream and replaces the
// rest with 0. A unit only counts as text when the unit before it also has a zero
// high byte, so the last byte of a NUL-terminated UTF-8 string is not read as a
// UTF-16 character.
func narrowUTF16(data []byte, offset int) []byte {
	out := make([]byte, 0, len(data)/2)
	for i := offset; i+1 < len(data); i += 2 {
		ascii := data[i+1] == 0 && data[i] >= 0x20 && data[i] < 0x7f
		if ascii && i >= 2 && data[i-1] != 0 {
			ascii = false
		}
		if ascii {
			out = append(out, data[i])
		} else {
			out = append(out, 0)
		}
	}
	return out
}

func isSignatureBlock(name string) bool {
	if !strings.HasPrefix(name, "META-INF/") {
		return false
	}
	switch strings.ToUpper(path.Ext(name)) {
	case ".RSA", ".DSA", ".EC":
		return true
	default:
		return false
	}
}

func readZipEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", entities.ErrIO, f.Name, err)
	}
	//nolint:errcheck // Defer close on read-only entry
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", entities.ErrIO, f.Name, err)
	}
	return data, nil
}
