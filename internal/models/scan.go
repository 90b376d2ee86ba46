package models

import (
	"encoding/json"
	"time"
)

// ScanStatus is the verdict attached to a scan. A scan starts out pending and
// moves to exactly one of the terminal values, or stays pending when the
// reputation service has not finished analyzing the resource yet.
type ScanStatus string

const (
	StatusPending    ScanStatus = "pending"
	StatusClean      ScanStatus = "clean"
	StatusSuspicious ScanStatus = "suspicious"
	StatusMalicious  ScanStatus = "malicious"
)

// Valid reports whether s is one of the known verdict values.
func (s ScanStatus) Valid() bool {
	switch s {
	case StatusPending, StatusClean, StatusSuspicious, StatusMalicious:
		return true
	}
	return false
}

// ScanType distinguishes URL scans from file scans.
type ScanType string

const (
	ScanTypeURL  ScanType = "url"
	ScanTypeFile ScanType = "file"
)

// Scan is one scan request and its outcome. Resource holds the original URL
// (pre-normalization) or the uploaded file's display name.
type Scan struct {
	ID        string          `json:"id"`
	UserID    int             `json:"userId"`
	ScanType  ScanType        `json:"scanType"`
	Resource  string          `json:"resource"`
	Status    ScanStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// VendorVerdict is one engine's finding within a report.
type VendorVerdict struct {
	Vendor   string `json:"vendor"`
	Category string `json:"category"`
	Result   string `json:"result"`
}

// SecurityAnalysis is the derived summary embedded in a resolved scan's
// result payload.
type SecurityAnalysis struct {
	TotalEngines     int             `json:"totalEngines"`
	MaliciousCount   int             `json:"maliciousCount"`
	SuspiciousCount  int             `json:"suspiciousCount"`
	CleanCount       int             `json:"cleanCount"`
	MaliciousRatio   float64         `json:"maliciousRatio"`
	SuspiciousRatio  float64         `json:"suspiciousRatio"`
	Summary          string          `json:"summary"`
	FlaggedVendors   []VendorVerdict `json:"flaggedVendors"`
	Categories       string          `json:"categories"`
	LastAnalysisDate string          `json:"lastAnalysisDate"`
	TimesSubmitted   int             `json:"timesSubmitted"`
}
