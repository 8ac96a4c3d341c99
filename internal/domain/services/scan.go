// Package services implements domain business logic and use cases.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
	"github.com/ochairo/reloaded/internal/domain/interfaces/gateways"
	"github.com/ochairo/reloaded/internal/domain/interfaces/repositories"
	"github.com/ochairo/reloaded/internal/domain/interfaces/services"
)

// Risk thresholds
const (
	maxRiskScore        = 100
	suspiciousThreshold = 60
	unknownThreshold    = 20
	malwareDetections   = 2 // More than this many engine detections is malware
)

// Permission weights
const (
	heavyPermissionWeight    = 40
	locationPermissionWeight = 20
	contactPermissionWeight  = 25
	defaultPermissionWeight  = 5
)

var heavyPermissions = map[string]bool{
	"android.permission.SEND_SMS":                 true,
	"android.permission.CALL_PHONE":               true,
	"android.permission.RECORD_AUDIO":             true,
	"android.permission.READ_SMS":                 true,
	"android.permission.WRITE_EXTERNAL_STORAGE":   true,
	"android.permission.REQUEST_INSTALL_PACKAGES": true,
}

// scanService implements ScanService with pure business logic
type scanService struct {
	gateway gateways.SecurityGateway
	cache   repositories.ScanRepository
	logger  interfaces.Logger
	now     func() time.Time
}

// NewScanService creates a new scan service with dependency injection
func NewScanService(gateway gateways.SecurityGateway, cache repositories.ScanRepository, logger interfaces.Logger) services.ScanService {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &scanService{
		gateway: gateway,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// HashFile returns the lowercase hex SHA-256 of a file
func (s *scanService) HashFile(filePath string) (string, error) {
	return s.gateway.CalculateChecksum(filePath)
}

// VerifyHash compares a file against an expected hash, ignoring case
func (s *scanService) VerifyHash(ctx context.Context, filePath, expected string) error {
	return s.gateway.VerifyChecksum(ctx, filePath, expected)
}

// PreInstallScan hashes, inspects and scores a package, consulting the cache first
func (s *scanService) PreInstallScan(ctx context.Context, filePath string, hints services.ScanHints) (*entities.ScanResult, error) {
	hash, err := s.gateway.CalculateChecksum(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash package: %w", err)
	}

	if s.cache != nil {
		cached, err := s.cache.GetByHash(ctx, hash)
		if err != nil {
			s.logger.Warn("scan cache lookup failed", interfaces.F("sha256", hash), interfaces.F("error", err))
		} else if cached != nil {
			s.logger.Debug("scan cache hit", interfaces.F("sha256", hash))
			return cached, nil
		}
	}

	info, err := s.gateway.Inspect(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect package: %w", err)
	}
	score := s.PermissionRiskScore(info.Permissions)

	// Reputation failures degrade to an unknown report
	report, err := s.gateway.FileReport(ctx, hash)
	if err != nil {
		s.logger.Error("reputation lookup failed", interfaces.F("sha256", hash), interfaces.F("error", err))
		report = nil
	}

	detections := 0
	if report != nil {
		detections = report.Malicious
	}

	result := &entities.ScanResult{
		SHA256:       hash,
		PackageName:  firstNonEmpty(info.PackageName, hints.PackageName),
		VersionName:  firstNonEmpty(info.VersionName, hints.VersionName),
		Verdict:      s.FinalVerdict(score, detections),
		RiskScore:    score,
		VTVerdict:    VTVerdict(report),
		VTDetections: detections,
		CheckedAt:    s.now().UnixMilli(),
	}

	if s.cache != nil {
		if err := s.cache.Upsert(ctx, result); err != nil {
			s.logger.Warn("failed to store scan result", interfaces.F("sha256", hash), interfaces.F("error", err))
		}
	}

	s.logger.Info("package scanned",
		interfaces.F("sha256", hash),
		interfaces.F("risk", score),
		interfaces.F("detections", detections),
		interfaces.F("verdict", result.Verdict))

	return result, nil
}

// PermissionRiskScore sums permission weights, clamped to 0..100
// Pure business logic - no I/O
func (s *scanService) PermissionRiskScore(permissions []string) int {
	return PermissionRiskScore(permissions)
}

// FinalVerdict applies the verdict thresholds
// Pure business logic - no I/O
func (s *scanService) FinalVerdict(riskScore, vtDetections int) entities.Verdict {
	return FinalVerdict(riskScore, vtDetections)
}

// ShouldBlockInstall determines if installation must be refused
func (s *scanService) ShouldBlockInstall(result *entities.ScanResult) bool {
	return result != nil && result.Verdict == entities.VerdictMalware
}

// PermissionRiskScore sums permission weights, clamped to 0..100
func PermissionRiskScore(permissions []string) int {
	score := 0
	for _, p := range permissions {
		switch {
		case heavyPermissions[p]:
			score += heavyPermissionWeight
		case strings.Contains(p, "LOCATION"):
			score += locationPermissionWeight
		case strings.Contains(p, "CONTACT"):
			score += contactPermissionWeight
		default:
			score += defaultPermissionWeight
		}
		if score >= maxRiskScore {
			return maxRiskScore
		}
	}
	return score
}

// FinalVerdict maps a risk score and detection count to a verdict
func FinalVerdict(riskScore, vtDetections int) entities.Verdict {
	switch {
	case vtDetections > malwareDetections:
		return entities.VerdictMalware
	case riskScore >= suspiciousThreshold:
		return entities.VerdictSuspicious
	case riskScore >= unknownThreshold:
		return entities.VerdictUnknown
	default:
		return entities.VerdictSafe
	}
}

// VTVerdict summarises a reputation report; nil means the lookup failed
func VTVerdict(report *entities.ReputationReport) entities.VTVerdict {
	switch {
	case report != nil && report.Malicious > 0:
		return entities.VTMalware
	case report != nil && report.Found:
		return entities.VTClean
	default:
		return entities.VTUnknown
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
