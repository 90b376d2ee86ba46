package workflow

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/fingerprint"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/models"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/normalize"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/storage"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/virustotal"
)

type lookupResult struct {
	report *virustotal.Report
	err    error
}

type pollResult struct {
	completed bool
	err       error
}

// fakeVT scripts the reputation service: lookups and polls are consumed in
// order, submissions always return the configured analysis id.
type fakeVT struct {
	lookups []lookupResult
	polls   []pollResult

	submitID  string
	submitAck json.RawMessage
	submitErr error

	lookupCalls      int
	submitCalls      int
	pollCalls        int
	lastFingerprint  string
	lastSubmittedURL string
}

func (f *fakeVT) lookup(fp string) (*virustotal.Report, error) {
	f.lastFingerprint = fp
	if f.lookupCalls >= len(f.lookups) {
		panic("fakeVT: unscripted lookup call")
	}
	res := f.lookups[f.lookupCalls]
	f.lookupCalls++
	return res.report, res.err
}

func (f *fakeVT) LookupURL(_ context.Context, fp string) (*virustotal.Report, error) {
	return f.lookup(fp)
}

func (f *fakeVT) LookupFile(_ context.Context, fp string) (*virustotal.Report, error) {
	return f.lookup(fp)
}

func (f *fakeVT) SubmitURL(_ context.Context, url string) (string, json.RawMessage, error) {
	f.submitCalls++
	f.lastSubmittedURL = url
	return f.submitID, f.submitAck, f.submitErr
}

func (f *fakeVT) SubmitFile(_ context.Context, _ string, r io.Reader) (string, json.RawMessage, error) {
	f.submitCalls++
	io.Copy(io.Discard, r)
	return f.submitID, f.submitAck, f.submitErr
}

func (f *fakeVT) PollAnalysis(_ context.Context, _ string) (*virustotal.Analysis, error) {
	if f.pollCalls >= len(f.polls) {
		panic("fakeVT: unscripted poll call")
	}
	res := f.polls[f.pollCalls]
	f.pollCalls++
	if res.err != nil {
		return nil, res.err
	}
	var analysis virustotal.Analysis
	if res.completed {
		analysis.Data.Attributes.Status = "completed"
	} else {
		analysis.Data.Attributes.Status = "queued"
	}
	return &analysis, nil
}

func makeReport(malicious, suspicious, undetected int) *virustotal.Report {
	var r virustotal.Report
	r.Data.Attributes.LastAnalysisStats = virustotal.AnalysisStats{
		Malicious:  malicious,
		Suspicious: suspicious,
		Undetected: undetected,
	}
	r.Raw = json.RawMessage(`{"data": {"id": "report-1"}}`)
	return &r
}

func newTestResolver(store storage.Store, vt *fakeVT) (*Resolver, *int) {
	sleeps := 0
	r := NewResolver(store, vt, nil)
	r.sleep = func(time.Duration) { sleeps++ }
	return r, &sleeps
}

// Scenario: never-seen URL, submit, analysis completes on the second poll.
func TestResolveURLSubmitAndPoll(t *testing.T) {
	store := storage.NewMemoryStore()
	vt := &fakeVT{
		lookups: []lookupResult{
			{err: virustotal.ErrNotFound},
			{report: makeReport(0, 0, 70)},
		},
		polls:     []pollResult{{completed: false}, {completed: true}},
		submitID:  "u-abc123",
		submitAck: json.RawMessage(`{"data": {"id": "u-abc123"}}`),
	}
	resolver, sleeps := newTestResolver(store, vt)

	scan, stillPending, err := resolver.ResolveURL(context.Background(), 1, "http://example.com?utm_source=x&sid=1")
	require.NoError(t, err)
	require.False(t, stillPending)

	assert.Equal(t, models.StatusClean, scan.Status)
	assert.Equal(t, "http://example.com?utm_source=x&sid=1", scan.Resource)
	assert.Equal(t, 2, vt.lookupCalls)
	assert.Equal(t, 1, vt.submitCalls)
	assert.Equal(t, 2, vt.pollCalls)
	assert.Equal(t, 1, *sleeps)

	// The cleaned URL, not the original, is what went upstream.
	cleaned, err := normalize.CleanURL("http://example.com?utm_source=x&sid=1")
	require.NoError(t, err)
	assert.Equal(t, cleaned, vt.lastSubmittedURL)
	assert.Equal(t, fingerprint.SHA256String(cleaned), vt.lastFingerprint)

	stored, err := store.GetScan(scan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClean, stored.Status)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stored.Result, &payload))
	assert.Contains(t, payload, "securityAnalysis")
	assert.Contains(t, payload, "data")
}

// Scenario: resource already known, verdict comes straight from the lookup.
func TestResolveURLLookupHit(t *testing.T) {
	store := storage.NewMemoryStore()
	vt := &fakeVT{
		lookups: []lookupResult{{report: makeReport(5, 0, 65)}},
	}
	resolver, sleeps := newTestResolver(store, vt)

	scan, stillPending, err := resolver.ResolveURL(context.Background(), 1, "http://known.example.com/")
	require.NoError(t, err)
	require.False(t, stillPending)

	assert.Equal(t, models.StatusMalicious, scan.Status)
	assert.Equal(t, 1, vt.lookupCalls)
	assert.Zero(t, vt.submitCalls)
	assert.Zero(t, vt.pollCalls)
	assert.Zero(t, *sleeps)
}

// Scenario: poll budget exhausted, scan left pending with the submission ack.
func TestResolveURLPollBudgetExhausted(t *testing.T) {
	store := storage.NewMemoryStore()
	polls := make([]pollResult, 10)
	ack := json.RawMessage(`{"data": {"id": "u-abc123"}}`)
	vt := &fakeVT{
		lookups:   []lookupResult{{err: virustotal.ErrNotFound}},
		polls:     polls,
		submitID:  "u-abc123",
		submitAck: ack,
	}
	resolver, sleeps := newTestResolver(store, vt)

	scan, stillPending, err := resolver.ResolveURL(context.Background(), 1, "http://slow.example.com/")
	require.NoError(t, err)
	assert.True(t, stillPending)

	assert.Equal(t, models.StatusPending, scan.Status)
	assert.Equal(t, 10, vt.pollCalls)
	assert.Equal(t, 10, *sleeps)

	stored, err := store.GetScan(scan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.JSONEq(t, string(ack), string(stored.Result))
}

func TestResolveURLInvalidCreatesNoRow(t *testing.T) {
	store := storage.NewMemoryStore()
	resolver, _ := newTestResolver(store, &fakeVT{})

	_, _, err := resolver.ResolveURL(context.Background(), 1, "not a url")
	assert.ErrorIs(t, err, normalize.ErrInvalidResource)

	scans, err := store.ScansByUser(1, 10)
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestResolveURLUpstreamErrorLeavesPendingRow(t *testing.T) {
	store := storage.NewMemoryStore()
	upstream := &virustotal.UpstreamError{StatusCode: 429, Message: "Quota exceeded"}
	vt := &fakeVT{lookups: []lookupResult{{err: upstream}}}
	resolver, _ := newTestResolver(store, vt)

	scan, stillPending, err := resolver.ResolveURL(context.Background(), 1, "http://example.com/")
	assert.ErrorAs(t, err, &upstream)
	assert.False(t, stillPending)
	require.NotNil(t, scan)

	// The row survives the failure for auditability.
	stored, err := store.GetScan(scan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Zero(t, vt.submitCalls)
}

func TestResolveURLSubmitErrorLeavesPendingRow(t *testing.T) {
	store := storage.NewMemoryStore()
	vt := &fakeVT{
		lookups:   []lookupResult{{err: virustotal.ErrNotFound}},
		submitErr: &virustotal.UpstreamError{StatusCode: 500, Message: "boom"},
	}
	resolver, _ := newTestResolver(store, vt)

	scan, _, err := resolver.ResolveURL(context.Background(), 1, "http://example.com/")
	require.Error(t, err)

	stored, serr := store.GetScan(scan.ID)
	require.NoError(t, serr)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Nil(t, stored.Result)
}

func TestResolveFileHashesContent(t *testing.T) {
	store := storage.NewMemoryStore()
	vt := &fakeVT{
		lookups: []lookupResult{{report: makeReport(0, 1, 69)}},
	}
	resolver, _ := newTestResolver(store, vt)

	path := filepath.Join(t.TempDir(), "sample.bin")
	content := []byte("MZ fake binary content")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	scan, stillPending, err := resolver.ResolveFile(context.Background(), 2, "sample.bin", path)
	require.NoError(t, err)
	require.False(t, stillPending)

	assert.Equal(t, models.StatusSuspicious, scan.Status)
	assert.Equal(t, models.ScanTypeFile, scan.ScanType)
	assert.Equal(t, "sample.bin", scan.Resource)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	wantFP, err := fingerprint.SHA256Reader(f)
	require.NoError(t, err)
	assert.Equal(t, wantFP, vt.lastFingerprint)
}

func TestResolveFileMissingTempFile(t *testing.T) {
	store := storage.NewMemoryStore()
	resolver, _ := newTestResolver(store, &fakeVT{})

	scan, _, err := resolver.ResolveFile(context.Background(), 2, "gone.bin", "/nonexistent/gone.bin")
	require.Error(t, err)
	require.NotNil(t, scan)

	stored, serr := store.GetScan(scan.ID)
	require.NoError(t, serr)
	assert.Equal(t, models.StatusPending, stored.Status)
}

// The workflow issues exactly one interim and one terminal write on the
// submit-and-poll path.
func TestResolveWriteOrdering(t *testing.T) {
	store := &writeRecordingStore{Store: storage.NewMemoryStore()}
	vt := &fakeVT{
		lookups: []lookupResult{
			{err: virustotal.ErrNotFound},
			{report: makeReport(0, 0, 70)},
		},
		polls:     []pollResult{{completed: true}},
		submitID:  "u-1",
		submitAck: json.RawMessage(`{"data": {"id": "u-1"}}`),
	}
	resolver, _ := newTestResolver(store, vt)

	_, _, err := resolver.ResolveURL(context.Background(), 1, "http://example.com/")
	require.NoError(t, err)

	require.Len(t, store.updates, 2)
	assert.Nil(t, store.updates[0].Status)
	require.NotNil(t, store.updates[1].Status)
	assert.Equal(t, models.StatusClean, *store.updates[1].Status)
}

type writeRecordingStore struct {
	storage.Store
	updates []storage.ScanUpdate
}

func (w *writeRecordingStore) UpdateScan(id string, update storage.ScanUpdate) (*models.Scan, error) {
	w.updates = append(w.updates, update)
	return w.Store.UpdateScan(id, update)
}
