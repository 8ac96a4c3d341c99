package entities

import "time"

// Verdict is the final pre-install decision for a package
type Verdict string

// Verdicts, from least to most severe
const (
	VerdictSafe       Verdict = "safe"
	VerdictUnknown    Verdict = "unknown"
	VerdictSuspicious Verdict = "suspicious"
	VerdictMalware    Verdict = "MALWARE"
)

// VTVerdict summarises the reputation service's opinion
type VTVerdict string

// Reputation verdicts
const (
	VTClean   VTVerdict = "Clean"
	VTMalware VTVerdict = "Malware"
	VTUnknown VTVerdict = "Unknown"
)

// ScanResult is the outcome of a pre-install scan, keyed by file hash
type ScanResult struct {
	SHA256       string    `json:"sha256"`
	PackageName  string    `json:"package_name,omitempty"`
	VersionName  string    `json:"version_name,omitempty"`
	Verdict      Verdict   `json:"verdict"`
	RiskScore    int       `json:"risk_score"`
	VTVerdict    VTVerdict `json:"vt_verdict,omitempty"`
	VTDetections int       `json:"vt_detections"`
	CheckedAt    int64     `json:"checked_at"` // Unix milliseconds
}

// CheckedTime returns CheckedAt as a time.Time
func (r *ScanResult) CheckedTime() time.Time {
	return time.UnixMilli(r.CheckedAt)
}

// ReputationReport holds the last analysis stats of a file reputation lookup
type ReputationReport struct {
	Found      bool // false when the service has never seen the hash
	Harmless   int
	Malicious  int
	Suspicious int
	Undetected int
}
