package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	t.Run("known vector - RFC 4231 test case 2", func(t *testing.T) {
		// HMAC-SHA-512 with key "Jefe" over "what do ya want for nothing?"
		got := Compute([]byte("what do ya want for nothing?"), "Jefe")
		want := "164b7a7bfcf819e2e395fbe73b56e0a387bd64222e831fd610270cd7ea250554" +
			"9758bf75c05a994a6d034f65f8f0e6fdcaeab1a34d4a6b4b636e070a38bce737"
		assert.Equal(t, want, got)
	})

	t.Run("lowercase hex encoding", func(t *testing.T) {
		got := Compute([]byte(`{"event":"charge.success"}`), "sk_test_secret")
		assert.Equal(t, strings.ToLower(got), got)
		assert.Len(t, got, 128) // 512-bit digest, hex encoded
	})

	t.Run("different bodies produce different signatures", func(t *testing.T) {
		a := Compute([]byte(`{"a":1}`), "secret")
		b := Compute([]byte(`{"a":2}`), "secret")
		assert.NotEqual(t, a, b)
	})

	t.Run("different secrets produce different signatures", func(t *testing.T) {
		a := Compute([]byte(`{"a":1}`), "secret-1")
		b := Compute([]byte(`{"a":1}`), "secret-2")
		assert.NotEqual(t, a, b)
	})
}

func TestVerify(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"REF-1"}}`)
	secret := "sk_test_secret"

	t.Run("success - valid signature", func(t *testing.T) {
		err := Verify(body, Compute(body, secret), secret)
		assert.NoError(t, err)
	})

	t.Run("error - missing header", func(t *testing.T) {
		err := Verify(body, "", secret)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissing)
	})

	t.Run("error - mismatched signature", func(t *testing.T) {
		err := Verify(body, Compute(body, "wrong-secret"), secret)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMismatch)
	})

	t.Run("error - missing and mismatch are distinct", func(t *testing.T) {
		missing := Verify(body, "", secret)
		mismatch := Verify(body, "garbage", secret)
		assert.NotErrorIs(t, missing, ErrMismatch)
		assert.NotErrorIs(t, mismatch, ErrMissing)
	})

	t.Run("error - garbage header", func(t *testing.T) {
		err := Verify(body, "not-even-hex!!!", secret)
		assert.ErrorIs(t, err, ErrMismatch)
	})

	t.Run("error - uppercase hex is rejected", func(t *testing.T) {
		// Comparison is byte-for-byte against the lowercase encoding.
		err := Verify(body, strings.ToUpper(Compute(body, secret)), secret)
		assert.ErrorIs(t, err, ErrMismatch)
	})

	t.Run("error - body altered after signing", func(t *testing.T) {
		header := Compute(body, secret)
		altered := []byte(`{"event":"charge.success","data":{"reference":"REF-2"}}`)
		err := Verify(altered, header, secret)
		assert.ErrorIs(t, err, ErrMismatch)
	})

	t.Run("signature covers exact raw bytes", func(t *testing.T) {
		// Same JSON value, different serialization: must not verify.
		spaced := []byte(`{"event": "charge.success", "data": {"reference": "REF-1"}}`)
		err := Verify(spaced, Compute(body, secret), secret)
		assert.ErrorIs(t, err, ErrMismatch)
	})
}
