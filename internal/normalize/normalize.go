package normalize

import (
	"errors"
	"net/url"
)

// MaxURLLength is the ceiling the reputation service accepts for URL
// identifiers. URLs that still exceed it after stripping every query
// parameter are rejected.
const MaxURLLength = 2000

var (
	ErrInvalidResource  = errors.New("invalid URL format")
	ErrResourceTooLarge = errors.New("URL is too long even after preprocessing (max 2000 characters)")
)

// trackingParams are query parameters that carry no routing meaning and vary
// per visitor (campaign tags, session ids, affiliate and click trackers).
// Removing them keeps equivalent URLs hashing to the same fingerprint.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"sessionId", "session_id", "sid", "ref", "referrer", "aff", "affiliate",
	"clk", "clickid", "click_id", "gclid", "fbclid", "msclkid",
}

// CleanURL canonicalizes a user-supplied URL before it is fingerprinted or
// submitted for analysis: tracking parameters and the fragment are dropped,
// and overlong URLs lose their entire query string as a fallback. The input
// is never mutated; file resources skip this step entirely.
func CleanURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrInvalidResource
	}

	query := parsed.Query()
	for _, param := range trackingParams {
		query.Del(param)
	}
	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""

	cleaned := parsed.String()
	if len(cleaned) > MaxURLLength {
		parsed.RawQuery = ""
		cleaned = parsed.String()
	}
	if len(cleaned) > MaxURLLength {
		return "", ErrResourceTooLarge
	}

	return cleaned, nil
}
