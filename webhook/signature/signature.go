package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

/* Provider webhook signatures are an HMAC-SHA512 of the raw request body,
 * hex encoded in lowercase and sent in a single header.
 * The hash must be computed over the byte-identical body as received;
 * re-serializing a parsed payload can change field order or whitespace and
 * silently desynchronize the signature.
 */

var (
	// ErrMissing indicates the signature header was absent or empty
	ErrMissing = errors.New("signature header is missing")

	// ErrMismatch indicates the signature header did not match the computed hash
	ErrMismatch = errors.New("signature does not match request body")
)

// Compute returns the lowercase hex HMAC-SHA512 of body keyed with secret
func Compute(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature header against the hash computed over body.
// It returns nil when the signature is valid, ErrMissing when the header is
// absent, and ErrMismatch otherwise, so callers can report the two failure
// modes separately. The comparison is constant-time to avoid timing leaks.
func Verify(body []byte, header, secret string) error {
	if header == "" {
		return ErrMissing
	}

	expected := Compute(body, secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(header)) != 1 {
		return ErrMismatch
	}

	return nil
}
