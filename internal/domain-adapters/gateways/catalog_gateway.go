package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces/gateways"
)

// UploadField is the multipart form field carrying the package file
const UploadField = "apk"

// HTTPCatalogGateway implements CatalogGateway against the catalog REST API
type HTTPCatalogGateway struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewHTTPCatalogGateway creates a catalog client for the server at baseURL
func NewHTTPCatalogGateway(baseURL string) *HTTPCatalogGateway {
	return &HTTPCatalogGateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute, // Uploads can be large
		},
		userAgent: UserAgent,
	}
}

// ResolveURL joins a server-relative path onto the base URL; absolute URLs pass through
func (g *HTTPCatalogGateway) ResolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.baseURL + path
}

// GetAppDetails retrieves the catalog entry for a package
func (g *HTTPCatalogGateway) GetAppDetails(ctx context.Context, packageName string, sdkVersion int) (*entities.CatalogEntry, error) {
	if packageName == "" {
		return nil, fmt.Errorf("%w: package name is required", entities.ErrInvalid)
	}

	endpoint := fmt.Sprintf("%s/api/v1/apps/details/%s?sdk_version=%s",
		g.baseURL, url.PathEscape(packageName), strconv.Itoa(sdkVersion))

	var entry entities.CatalogEntry
	if err := g.doJSON(ctx, http.MethodGet, endpoint, nil, "", &entry); err != nil {
		return nil, fmt.Errorf("failed to get details for %s: %w", packageName, err)
	}

	return &entry, nil
}

// ListPackages retrieves every package in the catalog
func (g *HTTPCatalogGateway) ListPackages(ctx context.Context) ([]entities.Package, error) {
	packages := make([]entities.Package, 0)
	if err := g.doJSON(ctx, http.MethodGet, g.baseURL+"/apps", nil, "", &packages); err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	return packages, nil
}

// Upload sends a package file as multipart form data
func (g *HTTPCatalogGateway) Upload(ctx context.Context, filePath string) (*gateways.UploadResult, error) {
	//nolint:gosec // G304: filePath is user-provided for upload
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", entities.ErrIO, filePath, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(UploadField, filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", entities.ErrIO, filePath, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	var result gateways.UploadResult
	if err := g.doJSON(ctx, http.MethodPost, g.baseURL+"/upload", &body, mw.FormDataContentType(), &result); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	return &result, nil
}

// RemoteVerdict asks the catalog for its recorded verdict on a hash
func (g *HTTPCatalogGateway) RemoteVerdict(ctx context.Context, sha256, packageName string) (entities.Verdict, error) {
	payload, err := json.Marshal(ScanRequest{SHA256: sha256, PackageName: packageName})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp ScanResponse
	if err := g.doJSON(ctx, http.MethodPost, g.baseURL+"/scan", bytes.NewReader(payload), "application/json", &resp); err != nil {
		return "", fmt.Errorf("remote scan failed: %w", err)
	}
	return resp.Verdict, nil
}

// doJSON performs a request and decodes a JSON response into out
func (g *HTTPCatalogGateway) doJSON(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return entities.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s", entities.ErrInvalid, strings.TrimSpace(string(msg)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("catalog returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse catalog response: %w", err)
	}
	return nil
}

// ScanRequest is the body of POST /scan
type ScanRequest struct {
	SHA256      string `json:"sha256"`
	PackageName string `json:"packageName"`
}

// ScanResponse is the reply to POST /scan
type ScanResponse struct {
	Verdict entities.Verdict `json:"verdict"`
}
