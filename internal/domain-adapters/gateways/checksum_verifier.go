package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

// hashChunkSize matches the read buffer the mobile clients use
const hashChunkSize = 32 * 1024

// checksumVerifier implements checksum verification using pure Go
type checksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumVerifier() *checksumVerifier {
	return &checksumVerifier{}
}

// VerifyChecksum verifies a file's SHA256 checksum, ignoring hex case
func (v *checksumVerifier) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	if expectedSum == "" {
		return fmt.Errorf("%w: expected checksum is empty", entities.ErrInvalid)
	}

	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	if !HashesEqual(actualSum, expectedSum) {
		return fmt.Errorf("%w: expected %s, got %s", entities.ErrHashMismatch, expectedSum, actualSum)
	}

	return nil
}

// CalculateChecksum calculates the SHA256 checksum of a file
func (v *checksumVerifier) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: File path is user-provided for checksum calculation
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open file: %v", entities.ErrIO, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	return HashReader(f)
}

// HashReader streams r through SHA256 and returns the lowercase hex digest
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("%w: failed to hash file: %v", entities.ErrIO, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashesEqual compares two hex digests case-insensitively; empty digests never match
func HashesEqual(a, b string) bool {
	if a == "" || b == "" || len(a) != len(b) {
		return false
	}
	return strings.EqualFold(a, b)
}
