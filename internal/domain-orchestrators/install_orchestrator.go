// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
	"github.com/ochairo/reloaded/internal/domain/interfaces/gateways"
	"github.com/ochairo/reloaded/internal/domain/interfaces/services"
	domainservices "github.com/ochairo/reloaded/internal/domain/services"
)

// StatusFunc receives one human-readable line per workflow step
type StatusFunc func(msg string)

// SignatureVerifier checks a detached package signature
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, filePath, sigURL string) error
}

// InstallOrchestratorConfig holds configuration for the orchestrator
type InstallOrchestratorConfig struct {
	SDKVersion       int
	CacheDir         string
	VerifySignatures bool
	Status           StatusFunc
}

// InstallOrchestrator coordinates intercept, lookup, download, scan and install
type InstallOrchestrator struct {
	catalog          gateways.CatalogGateway
	downloader       gateways.Downloader
	installer        gateways.Installer
	scanner          services.ScanService
	signatures       SignatureVerifier
	logger           interfaces.Logger
	status           StatusFunc
	sdkVersion       int
	cacheDir         string
	verifySignatures bool
}

// NewInstallOrchestrator creates a new install orchestrator
func NewInstallOrchestrator(
	catalog gateways.CatalogGateway,
	downloader gateways.Downloader,
	installer gateways.Installer,
	scanner services.ScanService,
	signatures SignatureVerifier,
	logger interfaces.Logger,
	config InstallOrchestratorConfig,
) *InstallOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	status := config.Status
	if status == nil {
		status = func(string) {}
	}
	cacheDir := config.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "reloaded")
	}

	return &InstallOrchestrator{
		catalog:          catalog,
		downloader:       downloader,
		installer:        installer,
		scanner:          scanner,
		signatures:       signatures,
		logger:           logger,
		status:           status,
		sdkVersion:       config.SDKVersion,
		cacheDir:         cacheDir,
		verifySignatures: config.VerifySignatures && signatures != nil,
	}
}

// InstallResult contains the outcome of an install workflow
type InstallResult struct {
	Entry     *entities.CatalogEntry
	FilePath  string
	Bytes     int64
	Scan      *entities.ScanResult
	Installed bool
	Duration  time.Duration
}

// Intercept resolves an install intent URI to a catalog entry
func (o *InstallOrchestrator) Intercept(ctx context.Context, uri string) (*entities.CatalogEntry, error) {
	packageName, err := domainservices.ParseInstallIntent(uri)
	if err != nil {
		o.status("No interception: " + uri)
		return nil, err
	}

	o.status("Intercepted install of " + packageName)
	return o.Lookup(ctx, packageName)
}

// Lookup asks the catalog for a package compatible with this client
func (o *InstallOrchestrator) Lookup(ctx context.Context, packageName string) (*entities.CatalogEntry, error) {
	o.status(fmt.Sprintf("Querying catalog for %s (sdk %d)...", packageName, o.sdkVersion))

	entry, err := o.catalog.GetAppDetails(ctx, packageName, o.sdkVersion)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			o.status("No compatible version found for " + packageName)
		} else {
			o.status("Catalog error: " + err.Error())
		}
		return nil, fmt.Errorf("catalog lookup for %s: %w", packageName, err)
	}

	if !entry.SupportsSDK(o.sdkVersion) {
		o.status(fmt.Sprintf("%s requires sdk %d, this device has %d", entry.Title, entry.MinSDK, o.sdkVersion))
		return nil, fmt.Errorf("%w: %s needs sdk %d", entities.ErrIncompatible, packageName, entry.MinSDK)
	}

	o.status(fmt.Sprintf("Found: %s v%s\nPermissions: %s", entry.Title, entry.VersionName, entry.PermissionsSummary))
	return entry, nil
}

// DownloadAndInstall downloads, verifies and scans a package, then launches the installer
// A MALWARE verdict or hash mismatch stops the workflow before the installer runs
func (o *InstallOrchestrator) DownloadAndInstall(ctx context.Context, entry *entities.CatalogEntry) (*InstallResult, error) {
	startTime := time.Now()
	result := &InstallResult{Entry: entry}

	if entry == nil || entry.PackageName == "" || entry.DownloadURL == "" {
		return result, fmt.Errorf("%w: catalog entry has no download", entities.ErrInvalid)
	}

	// Step 1: Download
	if err := os.MkdirAll(o.cacheDir, 0750); err != nil {
		return result, fmt.Errorf("%w: failed to create cache dir: %v", entities.ErrIO, err)
	}
	dest := filepath.Join(o.cacheDir, o.fileName(entry))

	o.status(fmt.Sprintf("Downloading %s...", entry.Title))
	lastDecile := -1
	written, err := o.downloader.Download(ctx, o.catalog.ResolveURL(entry.DownloadURL), dest, func(done, total int64) {
		if total <= 0 {
			return
		}
		percent := int(done * 100 / total)
		if percent/10 != lastDecile {
			lastDecile = percent / 10
			o.status(fmt.Sprintf("Downloading: %d%%", percent))
		}
	})
	if err != nil {
		o.status("Download failed: " + err.Error())
		return result, fmt.Errorf("download failed: %w", err)
	}
	result.FilePath = dest
	result.Bytes = written

	// Step 2: Verify catalog hash
	switch {
	case entry.SHA256 == "":
	case !isSHA256(entry.SHA256):
		o.logger.Warn("catalog hash is not a SHA-256 digest, skipping verification",
			interfaces.F("package", entry.PackageName), interfaces.F("sha256", entry.SHA256))
	default:
		if err := o.scanner.VerifyHash(ctx, result.FilePath, entry.SHA256); err != nil {
			o.status("Hash verification failed, not installing")
			return o.finish(result, startTime), fmt.Errorf("package %s: %w", entry.PackageName, err)
		}
		o.status("Hash verified")
	}

	// Step 3: Verify signature
	if o.verifySignatures && entry.SignatureURL != "" {
		if err := o.signatures.VerifySignature(ctx, result.FilePath, o.catalog.ResolveURL(entry.SignatureURL)); err != nil {
			o.status("Signature verification failed, not installing")
			return o.finish(result, startTime), fmt.Errorf("package %s: %w", entry.PackageName, err)
		}
		o.status("Signature verified")
	}

	// Step 4: Scan
	o.status("Download complete. Scanning (local + VT)...")
	scan, err := o.scanner.PreInstallScan(ctx, result.FilePath, services.ScanHints{
		PackageName: entry.PackageName,
		VersionName: entry.VersionName,
	})
	if err != nil {
		o.status("Scan failed: " + err.Error())
		return o.finish(result, startTime), fmt.Errorf("scan failed: %w", err)
	}
	result.Scan = scan
	o.status(ScanSummary(scan))

	if o.scanner.ShouldBlockInstall(scan) {
		o.status(fmt.Sprintf("INSTALLATION BLOCKED! Threat detected (VT: %d detections).", scan.VTDetections))
		o.logger.Warn("installation blocked",
			interfaces.F("package", entry.PackageName),
			interfaces.F("sha256", scan.SHA256),
			interfaces.F("detections", scan.VTDetections))
		return o.finish(result, startTime), fmt.Errorf("%w: %s", entities.ErrBlocked, entry.PackageName)
	}

	// Step 5: Install
	o.status("Checks passed. Launching system installer...")
	if err := o.installer.Launch(ctx, result.FilePath); err != nil {
		o.status("Installer failed: " + err.Error())
		return o.finish(result, startTime), err
	}
	result.Installed = true

	o.logger.Info("package handed to installer",
		interfaces.F("package", entry.PackageName),
		interfaces.F("version", entry.VersionName),
		interfaces.F("verdict", scan.Verdict))

	return o.finish(result, startTime), nil
}

// InterceptAndInstall runs the whole workflow for an install intent
func (o *InstallOrchestrator) InterceptAndInstall(ctx context.Context, uri string) (*InstallResult, error) {
	entry, err := o.Intercept(ctx, uri)
	if err != nil {
		return nil, err
	}
	return o.DownloadAndInstall(ctx, entry)
}

func (o *InstallOrchestrator) fileName(entry *entities.CatalogEntry) string {
	name := entry.PackageName
	if entry.VersionName != "" {
		name += "-" + entry.VersionName
	}
	// Keep the name inside the cache dir
	name = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
	return name + ".apk"
}

func isSHA256(s string) bool {
	b, err := hex.DecodeString(s)
	return err == nil && len(b) == sha256.Size
}

func (o *InstallOrchestrator) finish(result *InstallResult, startTime time.Time) *InstallResult {
	result.Duration = time.Since(startTime)
	return result
}

// ScanSummary renders a scan result the way the client shows it
func ScanSummary(scan *entities.ScanResult) string {
	return fmt.Sprintf("Scan complete.\nRisk (local): %d%%.\nVT (detections): %d.\nFINAL VERDICT: %s",
		scan.RiskScore, scan.VTDetections, scan.Verdict)
}
