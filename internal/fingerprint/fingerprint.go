// Package fingerprint produces the stable content digests used as lookup
// keys against the reputation service.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// SHA256String returns the lowercase hex SHA-256 of s.
func SHA256String(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SHA256Reader returns the lowercase hex SHA-256 of everything read from r.
func SHA256Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
