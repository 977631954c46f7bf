// Package token implements the compact signed session token used as the sole
// authentication primitive.
//
// A token is three dot-separated parts: a literal version tag, the base64url
// (unpadded) JSON payload, and a base64url (unpadded) HMAC-SHA256 signature
// over "<version>.<payloadPart>" keyed by the server secret.
//
// Verification is fully stateless; expiry is the only bound on a token's
// lifetime. There is no revocation list: compromising the secret invalidates
// every issued token and requires a full re-issue cycle for all tenants. That
// is an accepted operational risk of the scheme, not an oversight.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// Version is the single supported token version tag.
const Version = "v1"

// Payload is the signed token body. It is never persisted server-side.
type Payload struct {
	// Identity is the canonical 16-digit tenant identity.
	Identity string `json:"sub"`
	// IssuedAt is the mint time, unix seconds.
	IssuedAt int64 `json:"iat"`
	// ExpiresAt is the expiry, unix seconds. Tokens at or past expiry are invalid.
	ExpiresAt int64 `json:"exp"`
}

// Strict mode rejects non-canonical padding bits, so no two distinct
// encodings decode to the same signature bytes.
var enc = base64.RawURLEncoding.Strict()

// Sign serializes and signs the payload with the given secret.
func Sign(p Payload, secret []byte) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	signingInput := Version + "." + enc.EncodeToString(body)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signingInput))

	return signingInput + "." + enc.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks structure, version, signature and expiry, in that order, and
// returns the embedded payload. Every failure mode yields
// common.ErrInvalidToken: a forged signature and an expired token are
// indistinguishable to the caller.
func Verify(tok string, secret []byte, now time.Time) (Payload, error) {
	var zero Payload

	parts := strings.Split(tok, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return zero, common.ErrInvalidToken
	}
	if parts[0] != Version {
		return zero, common.ErrInvalidToken
	}

	sig, err := enc.DecodeString(parts[2])
	if err != nil {
		return zero, common.ErrInvalidToken
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return zero, common.ErrInvalidToken
	}

	body, err := enc.DecodeString(parts[1])
	if err != nil {
		return zero, common.ErrInvalidToken
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return zero, common.ErrInvalidToken
	}
	if p.ExpiresAt <= now.Unix() {
		return zero, common.ErrInvalidToken
	}

	return p, nil
}
