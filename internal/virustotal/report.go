package virustotal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// AnalysisStats are the per-category engine counts of a report.
type AnalysisStats struct {
	Harmless         int `json:"harmless"`
	Malicious        int `json:"malicious"`
	Suspicious       int `json:"suspicious"`
	Undetected       int `json:"undetected"`
	Timeout          int `json:"timeout"`
	ConfirmedTimeout int `json:"confirmed-timeout"`
	Failure          int `json:"failure"`
	TypeUnsupported  int `json:"type-unsupported"`
}

// Total sums every category bucket.
func (s AnalysisStats) Total() int {
	return s.Harmless + s.Malicious + s.Suspicious + s.Undetected +
		s.Timeout + s.ConfirmedTimeout + s.Failure + s.TypeUnsupported
}

// VendorResult is one engine's finding within last_analysis_results.
type VendorResult struct {
	Vendor   string
	Category string `json:"category"`
	Result   string `json:"result"`
}

// VendorResults preserves the document order of the last_analysis_results
// object. A plain map would lose the order the report lists its vendors in,
// and the "first five flagged" extraction depends on it.
type VendorResults []VendorResult

func (v *VendorResults) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("last_analysis_results: expected object, got %v", tok)
	}

	results := VendorResults{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		vendor, _ := keyTok.(string)

		var entry struct {
			Category string `json:"category"`
			Result   string `json:"result"`
		}
		if err := dec.Decode(&entry); err != nil {
			return err
		}

		results = append(results, VendorResult{
			Vendor:   vendor,
			Category: entry.Category,
			Result:   entry.Result,
		})
	}

	*v = results
	return nil
}

// ReportAttributes are the fields of a URL or file report the workflow and
// aggregator consume. URL reports carry categories; file reports carry known
// names instead.
type ReportAttributes struct {
	LastAnalysisStats   AnalysisStats     `json:"last_analysis_stats"`
	LastAnalysisResults VendorResults     `json:"last_analysis_results"`
	Categories          map[string]string `json:"categories"`
	Names               []string          `json:"names"`
	LastAnalysisDate    int64             `json:"last_analysis_date"`
	TimesSubmitted      int               `json:"times_submitted"`
}

// Report is a full VirusTotal report. Raw keeps the verbatim payload so it
// can be persisted untouched alongside the derived analysis.
type Report struct {
	Data struct {
		ID         string           `json:"id"`
		Attributes ReportAttributes `json:"attributes"`
	} `json:"data"`

	Raw json.RawMessage `json:"-"`
}

// CategoriesJoined renders the report's category tags (or known file names)
// as a single comma-joined string, "N/A" when the report has neither.
func (r *Report) CategoriesJoined() string {
	if len(r.Data.Attributes.Categories) > 0 {
		values := make([]string, 0, len(r.Data.Attributes.Categories))
		for _, v := range r.Data.Attributes.Categories {
			values = append(values, v)
		}
		sort.Strings(values)
		return strings.Join(values, ", ")
	}
	if len(r.Data.Attributes.Names) > 0 {
		return strings.Join(r.Data.Attributes.Names, ", ")
	}
	return "N/A"
}

// Analysis is the state of an asynchronous analysis job.
type Analysis struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status string `json:"status"`
		} `json:"attributes"`
	} `json:"data"`
}

// Completed reports whether the analysis job has finished.
func (a *Analysis) Completed() bool {
	return a.Data.Attributes.Status == "completed"
}

func parseReport(body []byte) (*Report, error) {
	var report Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, &UpstreamError{
			StatusCode: http.StatusBadGateway,
			Message:    "malformed report payload",
		}
	}
	report.Raw = make(json.RawMessage, len(body))
	copy(report.Raw, body)
	return &report, nil
}
