// Package verdict turns a multi-engine detection report into the single
// verdict a scan carries.
package verdict

import (
	"fmt"
	"time"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/models"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/virustotal"
)

// Classification thresholds. These are fixed business rules: more than
// maliciousCountThreshold engines, or more than maliciousRatioThreshold of
// all engines, flagging a resource makes it malicious outright.
const (
	maliciousCountThreshold  = 3
	maliciousRatioThreshold  = 0.1
	suspiciousRatioThreshold = 0.1

	// maxFlaggedVendors caps the per-scan vendor detail kept for display.
	maxFlaggedVendors = 5
)

// Classify derives the scan verdict and the summary analysis from a report.
// Pure function; a report with zero responding engines classifies as clean
// rather than dividing by zero.
func Classify(report *virustotal.Report) (models.ScanStatus, models.SecurityAnalysis) {
	attrs := report.Data.Attributes
	stats := attrs.LastAnalysisStats

	totalEngines := stats.Total()

	var maliciousRatio, suspiciousRatio float64
	if totalEngines > 0 {
		maliciousRatio = float64(stats.Malicious) / float64(totalEngines)
		suspiciousRatio = float64(stats.Suspicious) / float64(totalEngines)
	}

	status := models.StatusClean
	switch {
	case stats.Malicious > maliciousCountThreshold || maliciousRatio > maliciousRatioThreshold:
		status = models.StatusMalicious
	case stats.Malicious > 0 || stats.Suspicious > 0 || suspiciousRatio > suspiciousRatioThreshold:
		status = models.StatusSuspicious
	}

	analysis := models.SecurityAnalysis{
		TotalEngines:     totalEngines,
		MaliciousCount:   stats.Malicious,
		SuspiciousCount:  stats.Suspicious,
		CleanCount:       stats.Undetected,
		MaliciousRatio:   maliciousRatio,
		SuspiciousRatio:  suspiciousRatio,
		Summary:          summary(stats, totalEngines),
		FlaggedVendors:   flaggedVendors(attrs.LastAnalysisResults),
		Categories:       report.CategoriesJoined(),
		LastAnalysisDate: formatAnalysisDate(attrs.LastAnalysisDate),
		TimesSubmitted:   attrs.TimesSubmitted,
	}

	return status, analysis
}

func summary(stats virustotal.AnalysisStats, totalEngines int) string {
	switch {
	case totalEngines == 0:
		return "No security vendors have analyzed this resource yet"
	case stats.Malicious > 0:
		return fmt.Sprintf("Detected as dangerous by %d security vendors", stats.Malicious)
	case stats.Suspicious > 0:
		return fmt.Sprintf("Flagged as suspicious by %d security vendors", stats.Suspicious)
	default:
		return "Clean. No threats detected by security vendors"
	}
}

// flaggedVendors picks the first engines (in report order) that called the
// resource malicious or suspicious, capped at maxFlaggedVendors.
func flaggedVendors(results virustotal.VendorResults) []models.VendorVerdict {
	flagged := []models.VendorVerdict{}
	for _, res := range results {
		if res.Category != "malicious" && res.Category != "suspicious" {
			continue
		}
		label := res.Result
		if label == "" {
			label = "N/A"
		}
		flagged = append(flagged, models.VendorVerdict{
			Vendor:   res.Vendor,
			Category: res.Category,
			Result:   label,
		})
		if len(flagged) == maxFlaggedVendors {
			break
		}
	}
	return flagged
}

func formatAnalysisDate(unixSeconds int64) string {
	if unixSeconds == 0 {
		return "N/A"
	}
	return time.Unix(unixSeconds, 0).Format("1/2/2006, 3:04:05 PM")
}
