package orchestrators

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces/gateways"
	"github.com/ochairo/reloaded/internal/domain/interfaces/services"
)

// Mock implementations for testing
type mockCatalogGateway struct {
	entry *entities.CatalogEntry
	err   error
	sdk   int
}

func (m *mockCatalogGateway) GetAppDetails(_ context.Context, _ string, sdkVersion int) (*entities.CatalogEntry, error) {
	m.sdk = sdkVersion
	return m.entry, m.err
}

func (m *mockCatalogGateway) ListPackages(_ context.Context) ([]entities.Package, error) {
	return nil, errors.New("not implemented")
}

func (m *mockCatalogGateway) Upload(_ context.Context, _ string) (*gateways.UploadResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockCatalogGateway) RemoteVerdict(_ context.Context, _, _ string) (entities.Verdict, error) {
	return entities.VerdictUnknown, nil
}

func (m *mockCatalogGateway) ResolveURL(path string) string {
	return "http://catalog.test" + path
}

type mockDownloader struct {
	url string
	err error
}

func (m *mockDownloader) Download(_ context.Context, url, dest string, progress gateways.ProgressFunc) (int64, error) {
	m.url = url
	if m.err != nil {
		return 0, m.err
	}
	data := []byte("package bytes")
	if err := os.WriteFile(dest, data, 0600); err != nil {
		return 0, err
	}
	if progress != nil {
		progress(int64(len(data)), int64(len(data)))
	}
	return int64(len(data)), nil
}

type mockInstaller struct {
	launched string
	err      error
}

func (m *mockInstaller) Launch(_ context.Context, filePath string) error {
	m.launched = filePath
	return m.err
}

type mockScanService struct {
	result    *entities.ScanResult
	scanErr   error
	hashErr   error
	scanned   bool
	hints     services.ScanHints
	verifyArg string
}

func (m *mockScanService) PreInstallScan(_ context.Context, _ string, hints services.ScanHints) (*entities.ScanResult, error) {
	m.scanned = true
	m.hints = hints
	return m.result, m.scanErr
}

func (m *mockScanService) HashFile(_ string) (string, error) {
	return "", nil
}

func (m *mockScanService) VerifyHash(_ context.Context, _, expected string) error {
	m.verifyArg = expected
	return m.hashErr
}

func (m *mockScanService) PermissionRiskScore(_ []string) int {
	return 0
}

func (m *mockScanService) FinalVerdict(_, _ int) entities.Verdict {
	return entities.VerdictSafe
}

func (m *mockScanService) ShouldBlockInstall(result *entities.ScanResult) bool {
	return result != nil && result.Verdict == entities.VerdictMalware
}

type mockSignatureVerifier struct {
	sigURL string
	err    error
}

func (m *mockSignatureVerifier) VerifySignature(_ context.Context, _, sigURL string) error {
	m.sigURL = sigURL
	return m.err
}

const testHash = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

func testEntry() *entities.CatalogEntry {
	return &entities.CatalogEntry{
		PackageName:        "org.example.app",
		Title:              "Example",
		VersionName:        "1.2",
		DownloadURL:        "/download/org.example.app_19.apk",
		SHA256:             testHash,
		MinSDK:             8,
		PermissionsSummary: "Network",
	}
}

type fixture struct {
	catalog    *mockCatalogGateway
	downloader *mockDownloader
	installer  *mockInstaller
	scanner    *mockScanService
	signatures *mockSignatureVerifier
	statuses   []string
	cacheDir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		catalog:    &mockCatalogGateway{entry: testEntry()},
		downloader: &mockDownloader{},
		installer:  &mockInstaller{},
		scanner:    &mockScanService{result: &entities.ScanResult{SHA256: "abc", Verdict: entities.VerdictSafe}},
		signatures: &mockSignatureVerifier{},
		cacheDir:   t.TempDir(),
	}
}

func (f *fixture) orchestrator(verifySignatures bool) *InstallOrchestrator {
	return NewInstallOrchestrator(f.catalog, f.downloader, f.installer, f.scanner, f.signatures, nil, InstallOrchestratorConfig{
		SDKVersion:       19,
		CacheDir:         f.cacheDir,
		VerifySignatures: verifySignatures,
		Status:           func(msg string) { f.statuses = append(f.statuses, msg) },
	})
}

func TestInstallOrchestrator_Intercept(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(false)

	entry, err := o.Intercept(context.Background(), "market://details?id=org.example.app")
	if err != nil {
		t.Fatalf("Intercept() error = %v", err)
	}
	if entry.PackageName != "org.example.app" {
		t.Errorf("PackageName = %s", entry.PackageName)
	}
	if f.catalog.sdk != 19 {
		t.Errorf("catalog queried with sdk %d, want 19", f.catalog.sdk)
	}
	if !strings.Contains(strings.Join(f.statuses, "\n"), "Found: Example v1.2") {
		t.Errorf("missing found status in %v", f.statuses)
	}
}

func TestInstallOrchestrator_Intercept_NotAnIntent(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(false)

	_, err := o.Intercept(context.Background(), "https://example.com/app")
	if !errors.Is(err, entities.ErrInvalid) {
		t.Errorf("Intercept() error = %v, want ErrInvalid", err)
	}
}

func TestInstallOrchestrator_Lookup_Incompatible(t *testing.T) {
	f := newFixture(t)
	f.catalog.entry.MinSDK = 21
	o := f.orchestrator(false)

	_, err := o.Lookup(context.Background(), "org.example.app")
	if !errors.Is(err, entities.ErrIncompatible) {
		t.Errorf("Lookup() error = %v, want ErrIncompatible", err)
	}
}

func TestInstallOrchestrator_Lookup_NotFound(t *testing.T) {
	f := newFixture(t)
	f.catalog.entry = nil
	f.catalog.err = entities.ErrNotFound
	o := f.orchestrator(false)

	_, err := o.Lookup(context.Background(), "org.missing")
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Lookup() error = %v, want ErrNotFound", err)
	}
}

func TestInstallOrchestrator_DownloadAndInstall_Success(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(false)

	result, err := o.DownloadAndInstall(context.Background(), testEntry())
	if err != nil {
		t.Fatalf("DownloadAndInstall() error = %v", err)
	}

	wantPath := filepath.Join(f.cacheDir, "org.example.app-1.2.apk")
	if result.FilePath != wantPath {
		t.Errorf("FilePath = %s, want %s", result.FilePath, wantPath)
	}
	if f.downloader.url != "http://catalog.test/download/org.example.app_19.apk" {
		t.Errorf("download URL = %s", f.downloader.url)
	}
	if f.scanner.verifyArg != testHash {
		t.Errorf("hash verified against %q, want %s", f.scanner.verifyArg, testHash)
	}
	if f.scanner.hints.PackageName != "org.example.app" || f.scanner.hints.VersionName != "1.2" {
		t.Errorf("scan hints = %+v", f.scanner.hints)
	}
	if !result.Installed || f.installer.launched != wantPath {
		t.Errorf("installer not launched with %s (got %q)", wantPath, f.installer.launched)
	}
	if result.Bytes != int64(len("package bytes")) {
		t.Errorf("Bytes = %d", result.Bytes)
	}
}

func TestInstallOrchestrator_DownloadAndInstall_HashMismatch(t *testing.T) {
	f := newFixture(t)
	f.scanner.hashErr = entities.ErrHashMismatch
	o := f.orchestrator(false)

	result, err := o.DownloadAndInstall(context.Background(), testEntry())
	if !errors.Is(err, entities.ErrHashMismatch) {
		t.Fatalf("DownloadAndInstall() error = %v, want ErrHashMismatch", err)
	}
	if result.Installed || f.installer.launched != "" {
		t.Error("installer must not run after a hash mismatch")
	}
	if f.scanner.scanned {
		t.Error("scan should not run after a hash mismatch")
	}
}

func TestInstallOrchestrator_DownloadAndInstall_Blocked(t *testing.T) {
	f := newFixture(t)
	f.scanner.result = &entities.ScanResult{SHA256: "abc", Verdict: entities.VerdictMalware, VTDetections: 7}
	o := f.orchestrator(false)

	result, err := o.DownloadAndInstall(context.Background(), testEntry())
	if !errors.Is(err, entities.ErrBlocked) {
		t.Fatalf("DownloadAndInstall() error = %v, want ErrBlocked", err)
	}
	if result.Installed || f.installer.launched != "" {
		t.Error("installer must not run for MALWARE")
	}
	if result.Scan == nil || result.Scan.VTDetections != 7 {
		t.Errorf("scan result not recorded: %+v", result.Scan)
	}
	if !strings.Contains(strings.Join(f.statuses, "\n"), "INSTALLATION BLOCKED") {
		t.Errorf("missing blocked status in %v", f.statuses)
	}
}

func TestInstallOrchestrator_DownloadAndInstall_SuspiciousStillInstalls(t *testing.T) {
	f := newFixture(t)
	f.scanner.result = &entities.ScanResult{SHA256: "abc", Verdict: entities.VerdictSuspicious, RiskScore: 80}
	o := f.orchestrator(false)

	result, err := o.DownloadAndInstall(context.Background(), testEntry())
	if err != nil {
		t.Fatalf("DownloadAndInstall() error = %v", err)
	}
	if !result.Installed {
		t.Error("suspicious packages are installed after warning")
	}
}

func TestInstallOrchestrator_DownloadAndInstall_NoCatalogHash(t *testing.T) {
	f := newFixture(t)
	f.scanner.hashErr = entities.ErrHashMismatch
	entry := testEntry()
	entry.SHA256 = ""
	o := f.orchestrator(false)

	if _, err := o.DownloadAndInstall(context.Background(), entry); err != nil {
		t.Fatalf("DownloadAndInstall() error = %v", err)
	}
	if f.scanner.verifyArg != "" {
		t.Error("hash verification should be skipped without a catalog hash")
	}
}

func TestInstallOrchestrator_DownloadAndInstall_NonSHA256CatalogHash(t *testing.T) {
	f := newFixture(t)
	f.scanner.hashErr = entities.ErrHashMismatch
	entry := testEntry()
	entry.SHA256 = "a94a8fe5ccb19ba61c4c0873d391e987982fbbd3"
	o := f.orchestrator(false)

	result, err := o.DownloadAndInstall(context.Background(), entry)
	if err != nil {
		t.Fatalf("DownloadAndInstall() error = %v", err)
	}
	if f.scanner.verifyArg != "" || !result.Installed {
		t.Error("a non SHA-256 catalog hash should be skipped, not treated as a mismatch")
	}
}

func TestInstallOrchestrator_DownloadAndInstall_Signature(t *testing.T) {
	f := newFixture(t)
	entry := testEntry()
	entry.SignatureURL = "/download/org.example.app_19.apk.asc"

	o := f.orchestrator(true)
	if _, err := o.DownloadAndInstall(context.Background(), entry); err != nil {
		t.Fatalf("DownloadAndInstall() error = %v", err)
	}
	if f.signatures.sigURL != "http://catalog.test/download/org.example.app_19.apk.asc" {
		t.Errorf("signature URL = %s", f.signatures.sigURL)
	}

	f.signatures.err = errors.New("bad signature")
	f.installer.launched = ""
	if _, err := o.DownloadAndInstall(context.Background(), entry); err == nil {
		t.Fatal("expected error for bad signature")
	}
	if f.installer.launched != "" {
		t.Error("installer must not run after a signature failure")
	}
}

func TestInstallOrchestrator_DownloadAndInstall_DownloadError(t *testing.T) {
	f := newFixture(t)
	f.downloader.err = entities.ErrNotFound
	o := f.orchestrator(false)

	result, err := o.DownloadAndInstall(context.Background(), testEntry())
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("DownloadAndInstall() error = %v, want ErrNotFound", err)
	}
	if result.FilePath != "" || result.Bytes != 0 {
		t.Errorf("failed download reported a saved file: %s (%d bytes)", result.FilePath, result.Bytes)
	}
}

func TestInstallOrchestrator_DownloadAndInstall_InvalidEntry(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(false)

	_, err := o.DownloadAndInstall(context.Background(), &entities.CatalogEntry{PackageName: "x"})
	if !errors.Is(err, entities.ErrInvalid) {
		t.Errorf("DownloadAndInstall() error = %v, want ErrInvalid", err)
	}
}

func TestInstallOrchestrator_FileNameStaysInCache(t *testing.T) {
	o := newFixture(t).orchestrator(false)

	name := o.fileName(&entities.CatalogEntry{PackageName: "../../etc/passwd", VersionName: "1/2"})
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		t.Errorf("fileName() = %s escapes the cache dir", name)
	}
}

func TestScanSummary(t *testing.T) {
	summary := ScanSummary(&entities.ScanResult{RiskScore: 65, VTDetections: 1, Verdict: entities.VerdictSuspicious})

	for _, want := range []string{"65%", "detections): 1", "FINAL VERDICT: suspicious"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q: %s", want, summary)
		}
	}
}
