package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces/gateways"
)

// UserAgent identifies the client to the catalog and download hosts
const UserAgent = "reloaded-client/1.0"

// Downloader handles downloading packages from URLs
type Downloader struct {
	httpClient *http.Client
}

// NewDownloader creates a new downloader
func NewDownloader() *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for large downloads
		},
	}
}

// Download streams url into dest and returns the number of bytes written.
// The file is written next to dest and renamed into place once complete.
func (d *Downloader) Download(ctx context.Context, url, dest string, progress gateways.ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", entities.ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return 0, fmt.Errorf("%w: failed to create download directory: %v", entities.ErrIO, err)
	}

	partial := dest + ".part"
	//nolint:gosec // G304: File path dest is function parameter for download destination
	out, err := os.Create(partial)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create file: %v", entities.ErrIO, err)
	}

	var w io.Writer = out
	if progress != nil {
		w = &progressWriter{w: out, total: resp.ContentLength, report: progress}
	}

	written, err := io.Copy(w, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(partial)
		return written, fmt.Errorf("%w: failed to write file: %v", entities.ErrIO, err)
	}

	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return written, fmt.Errorf("%w: failed to move download into place: %v", entities.ErrIO, err)
	}

	return written, nil
}

// progressWriter reports cumulative bytes after every write
type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	report  gateways.ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.report(p.written, p.total)
	return n, err
}
