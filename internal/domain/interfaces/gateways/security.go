package gateways

import (
	"context"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

// ReputationGateway looks up a file hash in an external reputation service
type ReputationGateway interface {
	FileReport(ctx context.Context, sha256 string) (*entities.ReputationReport, error)
}

// PackageInspector extracts identity and permissions from a package file
type PackageInspector interface {
	Inspect(ctx context.Context, filePath string) (*entities.PackageInfo, error)
}

// SecurityGateway defines the interface for security operations
type SecurityGateway interface {
	ReputationGateway
	PackageInspector

	// Hashing and verification
	CalculateChecksum(filePath string) (string, error)
	VerifyChecksum(ctx context.Context, filePath, expectedSum string) error
	VerifySignature(ctx context.Context, filePath, sigURL string) error
}
