package gateways

import (
	"context"
	"fmt"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
	"github.com/ochairo/reloaded/internal/domain/interfaces/gateways"
)

// compositeSecurityGateway implements the SecurityGateway interface by composing
// the individual security gateways together
type compositeSecurityGateway struct {
	checksumVerifier *checksumVerifier
	reputation       gateways.ReputationGateway
	inspector        gateways.PackageInspector
	gpgVerifier      *gpgVerifier
}

// NewCompositeSecurityGateway creates a composite gateway backed by VirusTotal.
// Signature checks stay disabled until a keyring is imported.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for keyring setup
func NewCompositeSecurityGateway(vtURL, vtKey string, logger interfaces.Logger) *compositeSecurityGateway {
	return &compositeSecurityGateway{
		checksumVerifier: NewChecksumVerifier(),
		reputation:       NewVirusTotalGateway(vtURL, vtKey, logger),
		inspector:        NewPackageInspector(logger),
		gpgVerifier:      NewGPGVerifier(),
	}
}

// NewCompositeSecurityGatewayWithDeps creates a composite gateway with custom dependencies
// This is useful for testing or when you want to inject specific implementations
func NewCompositeSecurityGatewayWithDeps(
	checksum *checksumVerifier,
	reputation gateways.ReputationGateway,
	inspector gateways.PackageInspector,
	gpg *gpgVerifier,
) gateways.SecurityGateway {
	return &compositeSecurityGateway{
		checksumVerifier: checksum,
		reputation:       reputation,
		inspector:        inspector,
		gpgVerifier:      gpg,
	}
}

// FileReport looks the hash up in the reputation service
func (c *compositeSecurityGateway) FileReport(ctx context.Context, sha256 string) (*entities.ReputationReport, error) {
	return c.reputation.FileReport(ctx, sha256)
}

// Inspect extracts identity and permissions from the package
func (c *compositeSecurityGateway) Inspect(ctx context.Context, filePath string) (*entities.PackageInfo, error) {
	return c.inspector.Inspect(ctx, filePath)
}

// CalculateChecksum returns the SHA-256 of a file
func (c *compositeSecurityGateway) CalculateChecksum(filePath string) (string, error) {
	return c.checksumVerifier.CalculateChecksum(filePath)
}

// VerifyChecksum verifies a file's SHA256 checksum
func (c *compositeSecurityGateway) VerifyChecksum(ctx context.Context, filePath, expectedSum string) error {
	return c.checksumVerifier.VerifyChecksum(ctx, filePath, expectedSum)
}

// VerifySignature verifies a detached OpenPGP signature against the trusted keyring
func (c *compositeSecurityGateway) VerifySignature(ctx context.Context, filePath, sigURL string) error {
	if c.gpgVerifier == nil || c.gpgVerifier.KeyringSize() == 0 {
		return fmt.Errorf("%w: no trusted keyring configured", entities.ErrInvalid)
	}
	return c.gpgVerifier.VerifySignature(ctx, filePath, sigURL)
}

// ImportKeyring loads trusted signing keys from a local file
func (c *compositeSecurityGateway) ImportKeyring(keyPath string) error {
	return c.gpgVerifier.ImportKeyFromFile(keyPath)
}

// ImportKeyringFromURL loads trusted signing keys from a KEYS URL
func (c *compositeSecurityGateway) ImportKeyringFromURL(ctx context.Context, keysURL string) error {
	return c.gpgVerifier.ImportKeysFromURL(ctx, keysURL)
}

// SignaturesEnabled reports whether any trusted key is loaded
func (c *compositeSecurityGateway) SignaturesEnabled() bool {
	return c.gpgVerifier != nil && c.gpgVerifier.KeyringSize() > 0
}
