// Package sqlite provides a SQLite-backed store for scan results.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/reloaded/internal/domain/entities"

	_ "modernc.org/sqlite" // cgo-free driver
)

const scanSchema = `
CREATE TABLE IF NOT EXISTS scan_results (
	sha256        TEXT PRIMARY KEY,
	package_name  TEXT NOT NULL DEFAULT '',
	version_name  TEXT NOT NULL DEFAULT '',
	verdict       TEXT NOT NULL,
	risk_score    INTEGER NOT NULL,
	vt_verdict    TEXT NOT NULL DEFAULT '',
	vt_detections INTEGER NOT NULL DEFAULT 0,
	checked_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS scan_results_package ON scan_results(package_name);
`

// ScanRepository implements repositories.ScanRepository on a SQLite file
type ScanRepository struct {
	db   *sql.DB
	path string
}

// NewScanRepository opens (or creates) the database at path and applies the schema
func NewScanRepository(path string) (*ScanRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// One connection keeps :memory: databases shared and serialises writers
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			//nolint:errcheck // Already returning the pragma error
			db.Close()
			return nil, fmt.Errorf("pragma failed: %w", err)
		}
	}

	if _, err := db.Exec(scanSchema); err != nil {
		//nolint:errcheck // Already returning the schema error
		db.Close()
		return nil, fmt.Errorf("scan schema failed: %w", err)
	}

	return &ScanRepository{db: db, path: path}, nil
}

// Close releases the database
func (r *ScanRepository) Close() error { return r.db.Close() }

// Path returns the database location
func (r *ScanRepository) Path() string { return r.path }

// GetByHash returns the stored result, or nil when the hash is unknown
func (r *ScanRepository) GetByHash(ctx context.Context, sha256 string) (*entities.ScanResult, error) {
	result := &entities.ScanResult{}
	var verdict, vtVerdict string

	err := r.db.QueryRowContext(ctx, `
		SELECT sha256, package_name, version_name, verdict, risk_score, vt_verdict, vt_detections, checked_at
		FROM scan_results WHERE sha256 = ?`, strings.ToLower(sha256)).Scan(
		&result.SHA256,
		&result.PackageName,
		&result.VersionName,
		&verdict,
		&result.RiskScore,
		&vtVerdict,
		&result.VTDetections,
		&result.CheckedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan lookup: %v", entities.ErrIO, err)
	}

	result.Verdict = entities.Verdict(verdict)
	result.VTVerdict = entities.VTVerdict(vtVerdict)
	return result, nil
}

// Upsert stores the result, replacing any previous result for the same hash
func (r *ScanRepository) Upsert(ctx context.Context, result *entities.ScanResult) error {
	if result == nil || result.SHA256 == "" {
		return fmt.Errorf("%w: scan result needs a sha256", entities.ErrInvalid)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_results (sha256, package_name, version_name, verdict, risk_score, vt_verdict, vt_detections, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sha256) DO UPDATE SET
			package_name = excluded.package_name,
			version_name = excluded.version_name,
			verdict = excluded.verdict,
			risk_score = excluded.risk_score,
			vt_verdict = excluded.vt_verdict,
			vt_detections = excluded.vt_detections,
			checked_at = excluded.checked_at`,
		strings.ToLower(result.SHA256),
		result.PackageName,
		result.VersionName,
		string(result.Verdict),
		result.RiskScore,
		string(result.VTVerdict),
		result.VTDetections,
		result.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: scan upsert: %v", entities.ErrIO, err)
	}
	return nil
}

// ListByPackage returns every stored result for a package, newest first
func (r *ScanRepository) ListByPackage(ctx context.Context, packageName string) ([]*entities.ScanResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sha256, package_name, version_name, verdict, risk_score, vt_verdict, vt_detections, checked_at
		FROM scan_results WHERE package_name = ? ORDER BY checked_at DESC`, packageName)
	if err != nil {
		return nil, fmt.Errorf("%w: scan list: %v", entities.ErrIO, err)
	}
	//nolint:errcheck // Defer close
	defer rows.Close()

	results := make([]*entities.ScanResult, 0)
	for rows.Next() {
		result := &entities.ScanResult{}
		var verdict, vtVerdict string
		if err := rows.Scan(&result.SHA256, &result.PackageName, &result.VersionName, &verdict,
			&result.RiskScore, &vtVerdict, &result.VTDetections, &result.CheckedAt); err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", entities.ErrIO, err)
		}
		result.Verdict = entities.Verdict(verdict)
		result.VTVerdict = entities.VTVerdict(vtVerdict)
		results = append(results, result)
	}
	return results, rows.Err()
}
