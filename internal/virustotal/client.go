// Package virustotal is a thin adapter around the VirusTotal v3 API. It
// covers the three operations the scan workflow needs: look up an existing
// report by fingerprint, submit a new resource for analysis, and poll an
// analysis job until it completes.
package virustotal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://www.virustotal.com/api/v3"

// ErrNotFound signals that VirusTotal has never seen the resource. It is a
// normal branch outcome ("submit instead"), not a failure.
var ErrNotFound = errors.New("resource not known to VirusTotal")

// UpstreamError carries the status code and message of a failed VirusTotal
// call so handlers can mirror it to the caller.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("virustotal: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	httpc *resty.Client
}

// New builds a client bound to baseURL with the process-wide API key. The key
// is injected here once; nothing else reads it.
func New(baseURL, apiKey string) *Client {
	httpc := resty.New()
	httpc.SetBaseURL(baseURL)
	httpc.SetHeader("x-apikey", apiKey)

	return &Client{httpc: httpc}
}

// LookupURL fetches the existing report for a URL fingerprint (hex SHA-256 of
// the canonical URL). Returns ErrNotFound when VirusTotal has no record.
func (c *Client) LookupURL(ctx context.Context, fingerprint string) (*Report, error) {
	return c.lookup(ctx, "/urls/"+fingerprint)
}

// LookupFile fetches the existing report for a file fingerprint (hex SHA-256
// of the file bytes). Returns ErrNotFound when VirusTotal has no record.
func (c *Client) LookupFile(ctx context.Context, fingerprint string) (*Report, error) {
	return c.lookup(ctx, "/files/"+fingerprint)
}

func (c *Client) lookup(ctx context.Context, path string) (*Report, error) {
	resp, err := c.httpc.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, upstreamError(resp)
	}

	return parseReport(resp.Body())
}

// SubmitURL registers a URL for analysis and returns the analysis id along
// with the raw acknowledgement payload.
func (c *Client) SubmitURL(ctx context.Context, url string) (string, json.RawMessage, error) {
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetFormData(map[string]string{"url": url}).
		Post("/urls")
	if err != nil {
		return "", nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
	return parseSubmission(resp)
}

// SubmitFile uploads file bytes for analysis and returns the analysis id
// along with the raw acknowledgement payload.
func (c *Client) SubmitFile(ctx context.Context, filename string, r io.Reader) (string, json.RawMessage, error) {
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetFileReader("file", filename, r).
		Post("/files")
	if err != nil {
		return "", nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
	return parseSubmission(resp)
}

// PollAnalysis queries the state of a previously submitted analysis job. The
// poll response only reports completion; the authoritative vendor detail must
// be re-fetched by fingerprint afterwards.
func (c *Client) PollAnalysis(ctx context.Context, analysisID string) (*Analysis, error) {
	var analysis Analysis
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetResult(&analysis).
		Get("/analyses/" + analysisID)
	if err != nil {
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, upstreamError(resp)
	}
	return &analysis, nil
}

func parseSubmission(resp *resty.Response) (string, json.RawMessage, error) {
	if resp.StatusCode() != http.StatusOK {
		return "", nil, upstreamError(resp)
	}

	var ack struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	body := resp.Body()
	if err := json.Unmarshal(body, &ack); err != nil || ack.Data.ID == "" {
		return "", nil, &UpstreamError{
			StatusCode: http.StatusBadGateway,
			Message:    "missing analysis id in submission response",
		}
	}

	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	return ack.Data.ID, raw, nil
}

func upstreamError(resp *resty.Response) *UpstreamError {
	var body struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	message := "API request failed"
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error.Message != "" {
		message = body.Error.Message
	}
	return &UpstreamError{StatusCode: resp.StatusCode(), Message: message}
}
