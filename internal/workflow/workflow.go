// Package workflow drives a scan from creation to its terminal verdict:
// normalize and fingerprint the resource, look it up against the reputation
// service, submit it when unknown, poll the analysis job within a bounded
// budget, classify, and persist the outcome.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/fingerprint"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/models"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/normalize"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/storage"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/verdict"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/virustotal"
)

const (
	defaultPollAttempts = 10
	defaultPollDelay    = 5 * time.Second
)

// ReputationClient is the slice of the VirusTotal client the resolver uses.
type ReputationClient interface {
	LookupURL(ctx context.Context, fingerprint string) (*virustotal.Report, error)
	LookupFile(ctx context.Context, fingerprint string) (*virustotal.Report, error)
	SubmitURL(ctx context.Context, url string) (string, json.RawMessage, error)
	SubmitFile(ctx context.Context, filename string, r io.Reader) (string, json.RawMessage, error)
	PollAnalysis(ctx context.Context, analysisID string) (*virustotal.Analysis, error)
}

// EventPublisher is notified after a scan reaches a terminal verdict.
// Publishing is best-effort; failures are logged, never propagated.
type EventPublisher interface {
	ScanResolved(scan *models.Scan) error
}

// Resolver owns the lifecycle of a scan row from creation to final write. It
// is the sole writer for a scan id for the duration of a run; concurrent
// requests each get their own run.
type Resolver struct {
	store  storage.Store
	vt     ReputationClient
	events EventPublisher

	// sleep is injectable so tests can run the poll budget without
	// wall-clock delay.
	sleep        func(time.Duration)
	pollAttempts int
	pollDelay    time.Duration
}

func NewResolver(store storage.Store, vt ReputationClient, events EventPublisher) *Resolver {
	return &Resolver{
		store:        store,
		vt:           vt,
		events:       events,
		sleep:        time.Sleep,
		pollAttempts: defaultPollAttempts,
		pollDelay:    defaultPollDelay,
	}
}

// ResolveURL runs the full workflow for a submitted URL. The returned bool is
// true when the poll budget ran out and the scan was left pending. The
// original URL is persisted as the scan resource; only the cleaned form is
// fingerprinted and submitted.
func (r *Resolver) ResolveURL(ctx context.Context, userID int, rawURL string) (*models.Scan, bool, error) {
	cleaned, err := normalize.CleanURL(rawURL)
	if err != nil {
		// Validation failures reject before any row exists.
		return nil, false, err
	}

	scan, err := r.createScan(userID, models.ScanTypeURL, rawURL)
	if err != nil {
		return nil, false, err
	}

	fp := fingerprint.SHA256String(cleaned)
	return r.resolve(ctx, scan, fp,
		r.vt.LookupURL,
		func(ctx context.Context) (string, json.RawMessage, error) {
			return r.vt.SubmitURL(ctx, cleaned)
		})
}

// ResolveFile runs the full workflow for an uploaded file. path points at the
// temporary upload; the caller owns its removal on every exit path.
func (r *Resolver) ResolveFile(ctx context.Context, userID int, displayName, path string) (*models.Scan, bool, error) {
	scan, err := r.createScan(userID, models.ScanTypeFile, displayName)
	if err != nil {
		return nil, false, err
	}

	f, err := os.Open(path)
	if err != nil {
		return scan, false, err
	}
	fp, err := fingerprint.SHA256Reader(f)
	f.Close()
	if err != nil {
		return scan, false, err
	}

	return r.resolve(ctx, scan, fp,
		r.vt.LookupFile,
		func(ctx context.Context) (string, json.RawMessage, error) {
			f, err := os.Open(path)
			if err != nil {
				return "", nil, err
			}
			defer f.Close()
			return r.vt.SubmitFile(ctx, displayName, f)
		})
}

func (r *Resolver) createScan(userID int, scanType models.ScanType, resource string) (*models.Scan, error) {
	scan := &models.Scan{
		ID:        uuid.New().String(),
		UserID:    userID,
		ScanType:  scanType,
		Resource:  resource,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
	if err := r.store.CreateScan(scan); err != nil {
		return nil, err
	}
	return scan, nil
}

// resolve is the lookup → submit → poll → classify state machine shared by
// URL and file scans. On any upstream failure the already-created row stays
// pending so the attempt remains auditable.
func (r *Resolver) resolve(
	ctx context.Context,
	scan *models.Scan,
	fp string,
	lookup func(context.Context, string) (*virustotal.Report, error),
	submit func(context.Context) (string, json.RawMessage, error),
) (*models.Scan, bool, error) {
	report, err := lookup(ctx, fp)
	if err == nil {
		resolved, ferr := r.finalize(scan.ID, report)
		return resolved, false, ferr
	}
	if !errors.Is(err, virustotal.ErrNotFound) {
		return scan, false, err
	}

	// Unknown resource: register it and keep the acknowledgement so an
	// exhausted poll budget still leaves an auditable trail.
	analysisID, ack, err := submit(ctx)
	if err != nil {
		return scan, false, err
	}
	scan, err = r.store.UpdateScan(scan.ID, storage.ScanUpdate{Result: ack})
	if err != nil {
		return scan, false, err
	}

	for attempt := 1; attempt <= r.pollAttempts; attempt++ {
		analysis, err := r.vt.PollAnalysis(ctx, analysisID)
		if err != nil {
			return scan, false, err
		}
		if analysis.Completed() {
			// The poll response lacks full vendor detail; the
			// authoritative report is re-fetched by fingerprint.
			report, err := lookup(ctx, fp)
			if err != nil {
				return scan, false, err
			}
			resolved, ferr := r.finalize(scan.ID, report)
			return resolved, false, ferr
		}
		r.sleep(r.pollDelay)
	}

	// Budget exhausted: the scan stays pending and can be read back later.
	return scan, true, nil
}

// finalize classifies the report and issues the single terminal write.
func (r *Resolver) finalize(scanID string, report *virustotal.Report) (*models.Scan, error) {
	status, analysis := verdict.Classify(report)

	payload, err := embedAnalysis(report.Raw, analysis)
	if err != nil {
		return nil, err
	}

	resolved, err := r.store.UpdateScan(scanID, storage.ScanUpdate{
		Status: &status,
		Result: payload,
	})
	if err != nil {
		return nil, err
	}

	if r.events != nil {
		if err := r.events.ScanResolved(resolved); err != nil {
			log.Printf("[workflow] failed to publish scan event for %s: %v", scanID, err)
		}
	}
	return resolved, nil
}

// embedAnalysis grafts the derived securityAnalysis object onto the verbatim
// report payload, which is otherwise persisted untouched.
func embedAnalysis(raw json.RawMessage, analysis models.SecurityAnalysis) (json.RawMessage, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	payload["securityAnalysis"] = analysis
	return json.Marshal(payload)
}
