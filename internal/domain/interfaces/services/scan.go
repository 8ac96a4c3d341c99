// Package services defines interfaces for domain service contracts.
package services

import (
	"context"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

// ScanHints carries catalog metadata used when a package cannot be inspected
type ScanHints struct {
	PackageName string
	VersionName string
}

// ScanService defines the interface for pre-install scanning
// Contains business logic for security decisions
type ScanService interface {
	// High-level operations
	PreInstallScan(ctx context.Context, filePath string, hints ScanHints) (*entities.ScanResult, error)
	HashFile(filePath string) (string, error)
	VerifyHash(ctx context.Context, filePath, expected string) error

	// Business logic
	PermissionRiskScore(permissions []string) int
	FinalVerdict(riskScore, vtDetections int) entities.Verdict
	ShouldBlockInstall(result *entities.ScanResult) bool
}
