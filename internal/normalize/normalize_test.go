package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanURLStripsTrackingParams(t *testing.T) {
	cleaned, err := CleanURL("http://example.com/page?utm_source=x&utm_medium=y&id=42&fbclid=abc")
	require.NoError(t, err)

	assert.NotContains(t, cleaned, "utm_source")
	assert.NotContains(t, cleaned, "utm_medium")
	assert.NotContains(t, cleaned, "fbclid")
	assert.Contains(t, cleaned, "id=42")
}

func TestCleanURLStripsEveryDenylistedParam(t *testing.T) {
	for _, param := range trackingParams {
		cleaned, err := CleanURL("http://example.com/?" + param + "=value&keep=1")
		require.NoError(t, err, param)
		assert.NotContains(t, cleaned, param+"=", param)
		assert.Contains(t, cleaned, "keep=1", param)
	}
}

func TestCleanURLClearsFragment(t *testing.T) {
	cleaned, err := CleanURL("https://example.com/path?a=1#section-2")
	require.NoError(t, err)
	assert.NotContains(t, cleaned, "#")
}

func TestCleanURLIdempotent(t *testing.T) {
	urls := []string{
		"http://example.com/page?utm_source=x&sid=1&q=test#frag",
		"https://example.com/a/b?z=1&a=2",
		"http://example.com",
	}
	for _, raw := range urls {
		once, err := CleanURL(raw)
		require.NoError(t, err)
		twice, err := CleanURL(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, raw)
	}
}

func TestCleanURLInvalid(t *testing.T) {
	for _, raw := range []string{"", "not a url", "example.com/no-scheme", "://bad"} {
		_, err := CleanURL(raw)
		assert.ErrorIs(t, err, ErrInvalidResource, raw)
	}
}

func TestCleanURLDropsAllParamsWhenTooLong(t *testing.T) {
	longValue := strings.Repeat("a", 2500)
	cleaned, err := CleanURL("http://example.com/page?big=" + longValue)
	require.NoError(t, err)

	assert.NotContains(t, cleaned, "big=")
	assert.Equal(t, "http://example.com/page", cleaned)
}

func TestCleanURLTooLargeAfterStripping(t *testing.T) {
	longPath := strings.Repeat("a", 2500)
	_, err := CleanURL("http://example.com/" + longPath)
	assert.ErrorIs(t, err, ErrResourceTooLarge)
}
