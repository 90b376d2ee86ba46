package verdict

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/models"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/virustotal"
)

func report(malicious, suspicious, undetected int) *virustotal.Report {
	var r virustotal.Report
	r.Data.Attributes.LastAnalysisStats = virustotal.AnalysisStats{
		Malicious:  malicious,
		Suspicious: suspicious,
		Undetected: undetected,
	}
	return &r
}

func TestClassifyMaliciousByCount(t *testing.T) {
	// 4 of 70 engines is under the ratio threshold but over the count one.
	status, analysis := Classify(report(4, 0, 66))

	assert.Equal(t, models.StatusMalicious, status)
	assert.Equal(t, 70, analysis.TotalEngines)
	assert.Equal(t, "Detected as dangerous by 4 security vendors", analysis.Summary)
}

func TestClassifyMaliciousByRatio(t *testing.T) {
	// 2 of 10 engines: count threshold not met, ratio 0.2 > 0.1.
	status, _ := Classify(report(2, 0, 8))
	assert.Equal(t, models.StatusMalicious, status)
}

func TestClassifySuspiciousOnSingleMaliciousHit(t *testing.T) {
	status, _ := Classify(report(1, 0, 69))
	assert.Equal(t, models.StatusSuspicious, status)
}

func TestClassifySuspiciousOnSuspiciousHits(t *testing.T) {
	status, analysis := Classify(report(0, 2, 68))
	assert.Equal(t, models.StatusSuspicious, status)
	assert.Equal(t, "Flagged as suspicious by 2 security vendors", analysis.Summary)
}

func TestClassifyClean(t *testing.T) {
	status, analysis := Classify(report(0, 0, 70))

	assert.Equal(t, models.StatusClean, status)
	assert.Equal(t, "Clean. No threats detected by security vendors", analysis.Summary)
	assert.Zero(t, analysis.MaliciousRatio)
	assert.Zero(t, analysis.SuspiciousRatio)
}

func TestClassifyZeroEngines(t *testing.T) {
	status, analysis := Classify(report(0, 0, 0))

	assert.Equal(t, models.StatusClean, status)
	assert.Zero(t, analysis.TotalEngines)
	assert.Equal(t, "No security vendors have analyzed this resource yet", analysis.Summary)
}

func TestClassifyFlaggedVendorsCappedAtFive(t *testing.T) {
	r := report(8, 2, 60)
	for i := 0; i < 8; i++ {
		r.Data.Attributes.LastAnalysisResults = append(r.Data.Attributes.LastAnalysisResults,
			virustotal.VendorResult{Vendor: fmt.Sprintf("Engine%d", i), Category: "malicious", Result: "trojan"})
	}
	for i := 0; i < 2; i++ {
		r.Data.Attributes.LastAnalysisResults = append(r.Data.Attributes.LastAnalysisResults,
			virustotal.VendorResult{Vendor: fmt.Sprintf("SusEngine%d", i), Category: "suspicious", Result: ""})
	}

	_, analysis := Classify(r)

	assert.Len(t, analysis.FlaggedVendors, 5)
	// First five flagged in report order.
	assert.Equal(t, "Engine0", analysis.FlaggedVendors[0].Vendor)
	assert.Equal(t, "Engine4", analysis.FlaggedVendors[4].Vendor)
}

func TestClassifyFlaggedVendorsSkipsBenign(t *testing.T) {
	r := report(1, 1, 68)
	r.Data.Attributes.LastAnalysisResults = virustotal.VendorResults{
		{Vendor: "CleanEngine", Category: "harmless", Result: "clean"},
		{Vendor: "BadEngine", Category: "malicious", Result: "phishing"},
		{Vendor: "OddEngine", Category: "suspicious", Result: ""},
		{Vendor: "QuietEngine", Category: "undetected", Result: ""},
	}

	_, analysis := Classify(r)

	assert.Equal(t, []models.VendorVerdict{
		{Vendor: "BadEngine", Category: "malicious", Result: "phishing"},
		{Vendor: "OddEngine", Category: "suspicious", Result: "N/A"},
	}, analysis.FlaggedVendors)
}

func TestClassifyCarriesMetadata(t *testing.T) {
	r := report(0, 0, 70)
	r.Data.Attributes.Categories = map[string]string{"VendorA": "news", "VendorB": "media"}
	r.Data.Attributes.LastAnalysisDate = 1700000000
	r.Data.Attributes.TimesSubmitted = 12

	_, analysis := Classify(r)

	assert.Equal(t, "media, news", analysis.Categories)
	assert.NotEqual(t, "N/A", analysis.LastAnalysisDate)
	assert.Equal(t, 12, analysis.TimesSubmitted)
}

func TestClassifyMissingMetadata(t *testing.T) {
	_, analysis := Classify(report(0, 0, 70))

	assert.Equal(t, "N/A", analysis.Categories)
	assert.Equal(t, "N/A", analysis.LastAnalysisDate)
	assert.Zero(t, analysis.TimesSubmitted)
	assert.Empty(t, analysis.FlaggedVendors)
}
