package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

func newTestRepository(t *testing.T) *ScanRepository {
	t.Helper()
	repo, err := NewScanRepository(filepath.Join(t.TempDir(), "db", "scans.db"))
	if err != nil {
		t.Fatalf("NewScanRepository() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestScanRepository_GetByHash_Missing(t *testing.T) {
	repo := newTestRepository(t)

	result, err := repo.GetByHash(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if result != nil {
		t.Errorf("GetByHash() = %+v, want nil", result)
	}
}

func TestScanRepository_UpsertAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	want := &entities.ScanResult{
		SHA256:       "abc123",
		PackageName:  "org.example",
		VersionName:  "1.0",
		Verdict:      entities.VerdictSuspicious,
		RiskScore:    65,
		VTVerdict:    entities.VTMalware,
		VTDetections: 1,
		CheckedAt:    1700000000000,
	}
	if err := repo.Upsert(ctx, want); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByHash(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if got == nil || *got != *want {
		t.Errorf("GetByHash() = %+v, want %+v", got, want)
	}
}

func TestScanRepository_UpsertReplaces(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := &entities.ScanResult{SHA256: "abc", Verdict: entities.VerdictSafe, CheckedAt: 1}
	second := &entities.ScanResult{SHA256: "abc", Verdict: entities.VerdictMalware, VTDetections: 5, CheckedAt: 2}

	for _, r := range []*entities.ScanResult{first, second} {
		if err := repo.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	got, err := repo.GetByHash(ctx, "abc")
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if got.Verdict != entities.VerdictMalware || got.VTDetections != 5 || got.CheckedAt != 2 {
		t.Errorf("Upsert did not replace: %+v", got)
	}
}

func TestScanRepository_Upsert_Invalid(t *testing.T) {
	repo := newTestRepository(t)

	for _, r := range []*entities.ScanResult{nil, {Verdict: entities.VerdictSafe}} {
		if err := repo.Upsert(context.Background(), r); !errors.Is(err, entities.ErrInvalid) {
			t.Errorf("Upsert(%+v) error = %v, want ErrInvalid", r, err)
		}
	}
}

func TestScanRepository_ListByPackage(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, r := range []*entities.ScanResult{
		{SHA256: "a", PackageName: "org.example", Verdict: entities.VerdictSafe, CheckedAt: 10},
		{SHA256: "b", PackageName: "org.example", Verdict: entities.VerdictUnknown, CheckedAt: 20},
		{SHA256: "c", PackageName: "org.other", Verdict: entities.VerdictSafe, CheckedAt: 30},
	} {
		if err := repo.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	results, err := repo.ListByPackage(ctx, "org.example")
	if err != nil {
		t.Fatalf("ListByPackage() error = %v", err)
	}
	if len(results) != 2 || results[0].SHA256 != "b" || results[1].SHA256 != "a" {
		t.Errorf("ListByPackage() = %+v", results)
	}
}

func TestScanRepository_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scans.db")
	ctx := context.Background()

	repo, err := NewScanRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Upsert(ctx, &entities.ScanResult{SHA256: "abc", Verdict: entities.VerdictSafe}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewScanRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.GetByHash(ctx, "abc")
	if err != nil || got == nil {
		t.Fatalf("GetByHash() after reopen = %v, %v", got, err)
	}
}
