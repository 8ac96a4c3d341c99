package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ochairo/reloaded/internal/domain/entities"
	"github.com/ochairo/reloaded/internal/domain/interfaces"
)

// DefaultVirusTotalURL is the v3 API root
const DefaultVirusTotalURL = "https://www.virustotal.com/api/v3/"

// virusTotalGateway looks up file reports by hash using the VirusTotal v3 API
type virusTotalGateway struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	logger     interfaces.Logger
}

// NewVirusTotalGateway creates a new reputation gateway; an empty key disables lookups
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewVirusTotalGateway(apiURL, apiKey string, logger interfaces.Logger) *virusTotalGateway {
	if apiURL == "" {
		apiURL = DefaultVirusTotalURL
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &virusTotalGateway{
		apiURL: strings.TrimSuffix(apiURL, "/") + "/",
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// FileReport fetches the last analysis stats for a SHA256
func (g *virusTotalGateway) FileReport(ctx context.Context, sha256 string) (*entities.ReputationReport, error) {
	if g.apiKey == "" {
		g.logger.Warn("reputation lookup skipped: no API key configured", interfaces.F("sha256", sha256))
		return &entities.ReputationReport{}, nil
	}

	endpoint := g.apiURL + "files/" + url.PathEscape(sha256)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-apikey", g.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("VirusTotal request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// Hash never submitted
		return &entities.ReputationReport{}, nil
	default:
		return nil, fmt.Errorf("VirusTotal returned HTTP %d", resp.StatusCode)
	}

	var vtResp VTReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&vtResp); err != nil {
		return nil, fmt.Errorf("failed to parse VirusTotal response: %w", err)
	}

	if vtResp.Data == nil {
		return &entities.ReputationReport{}, nil
	}

	report := &entities.ReputationReport{Found: true}
	if vtResp.Data.Attributes != nil && vtResp.Data.Attributes.LastAnalysisStats != nil {
		stats := vtResp.Data.Attributes.LastAnalysisStats
		report.Harmless = stats.Harmless
		report.Malicious = stats.Malicious
		report.Suspicious = stats.Suspicious
		report.Undetected = stats.Undetected
	}

	return report, nil
}

// VirusTotal API response types

// VTReportResponse is the envelope of GET /files/{id}
type VTReportResponse struct {
	Data *VTData `json:"data"`
}

// VTData is the file object
type VTData struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Attributes *VTAttributes `json:"attributes"`
}

// VTAttributes holds the subset of file attributes used for verdicts
type VTAttributes struct {
	LastAnalysisStats *VTAnalysisStats `json:"last_analysis_stats"`
}

// VTAnalysisStats counts engine results by category
type VTAnalysisStats struct {
	Harmless   int `json:"harmless"`
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
}
