package orchestrators

import (
	"context"
	"fmt"
	"time"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
	"github.com/ochairo/reloaded/internal/domain/interfaces/repositories"
	"github.com/ochairo/reloaded/internal/domain/interfaces/services"
)

// ScanOrchestrator coordinates server-side scanning of uploaded packages
// and answers verdict queries from the recorded results
type ScanOrchestrator struct {
	scanner services.ScanService
	results repositories.ScanRepository
	logger  interfaces.Logger
}

// NewScanOrchestrator creates a new scan orchestrator
func NewScanOrchestrator(scanner services.ScanService, results repositories.ScanRepository, logger interfaces.Logger) *ScanOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ScanOrchestrator{
		scanner: scanner,
		results: results,
		logger:  logger,
	}
}

// ScanWorkflowResult contains the outcome of scanning one stored package
type ScanWorkflowResult struct {
	Scan             *entities.ScanResult
	WorkflowDuration time.Duration
	Blocked          bool
	BlockReason      string
}

// ScanUpload scans a stored upload and records the result
func (o *ScanOrchestrator) ScanUpload(ctx context.Context, filePath string, hints services.ScanHints) (*ScanWorkflowResult, error) {
	startTime := time.Now()

	scan, err := o.scanner.PreInstallScan(ctx, filePath, hints)
	if err != nil {
		return nil, fmt.Errorf("upload scan failed: %w", err)
	}

	result := &ScanWorkflowResult{Scan: scan}
	if o.scanner.ShouldBlockInstall(scan) {
		result.Blocked = true
		result.BlockReason = o.determineBlockReason(scan)
		o.logger.Warn("upload flagged", interfaces.F("sha256", scan.SHA256), interfaces.F("reason", result.BlockReason))
	}

	result.WorkflowDuration = time.Since(startTime)
	return result, nil
}

// Verdict returns the recorded verdict for a hash, or unknown when never scanned
func (o *ScanOrchestrator) Verdict(ctx context.Context, sha256, packageName string) (entities.Verdict, error) {
	if sha256 == "" {
		return "", fmt.Errorf("%w: sha256 is required", entities.ErrInvalid)
	}

	recorded, err := o.results.GetByHash(ctx, sha256)
	if err != nil {
		return "", fmt.Errorf("verdict lookup failed: %w", err)
	}
	if recorded == nil {
		o.logger.Debug("verdict requested for unknown hash", interfaces.F("sha256", sha256), interfaces.F("package", packageName))
		return entities.VerdictUnknown, nil
	}
	return recorded.Verdict, nil
}

// determineBlockReason explains why a scan result blocks installation
func (o *ScanOrchestrator) determineBlockReason(scan *entities.ScanResult) string {
	if scan.VTDetections > 0 {
		return fmt.Sprintf("Blocked: %d engines flagged the package", scan.VTDetections)
	}
	return "Blocked: security requirements not met"
}

// GetScanSummary generates a human-readable summary of a workflow result
func (o *ScanOrchestrator) GetScanSummary(result *ScanWorkflowResult) string {
	if result.Blocked {
		return fmt.Sprintf("🚫 BLOCKED: %s", result.BlockReason)
	}

	summary := fmt.Sprintf("✅ %s: risk %d/100\n", result.Scan.Verdict, result.Scan.RiskScore)
	summary += fmt.Sprintf("   VT: %s (%d detections)\n", result.Scan.VTVerdict, result.Scan.VTDetections)
	summary += fmt.Sprintf("   Duration: %v", result.WorkflowDuration)

	return summary
}
