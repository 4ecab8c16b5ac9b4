// Package token implements the HMAC-signed admission cookie: issue and
// verify a base64url(json)+"."+base64url(hmac) token binding user-agent,
// client-IP, and the winning PoW nonce.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Version is the only payload format this package issues or accepts.
const Version = "v1"

// Payload is the admission token's signed content.
type Payload struct {
	V     string `json:"v"`
	Exp   int64  `json:"exp"`
	Bits  int    `json:"bits"`
	Scope string `json:"scope"`
	UA    string `json:"ua"`
	IP    string `json:"ip,omitempty"`
	Nonce string `json:"nonce"`
}

var b64 = base64.RawURLEncoding

// Issue serializes payload, signs it with HMAC-SHA-256 under secret, and
// returns the wire-form token: base64url(json(payload)) + "." +
// base64url(hmac), both without padding.
func Issue(secret []byte, payload Payload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("token: marshal payload: %w", err)
	}

	payloadB64 := b64.EncodeToString(raw)
	sig := sign(secret, payloadB64)

	return payloadB64 + "." + b64.EncodeToString(sig), nil
}

// Verify validates a token against secret at the instant now and returns
// its parsed payload. It rejects: a missing half, a signature mismatch, a
// base64 or JSON decode failure, a version other than "v1", an expired
// exp, and an empty nonce.
func Verify(secret []byte, raw string, now time.Time) (Payload, error) {
	raw = strings.Trim(raw, `"`)

	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 {
		return Payload{}, fmt.Errorf("token: malformed token")
	}

	payloadB64 := strings.TrimRight(parts[0], "=")
	sigB64 := strings.TrimRight(parts[1], "=")

	if payloadB64 == "" || sigB64 == "" {
		return Payload{}, fmt.Errorf("token: empty payload or signature")
	}

	wantSig, err := b64.DecodeString(sigB64)
	if err != nil {
		return Payload{}, fmt.Errorf("token: decode signature: %w", err)
	}

	gotSig := sign(secret, payloadB64)
	if !hmac.Equal(wantSig, gotSig) {
		return Payload{}, fmt.Errorf("token: signature mismatch")
	}

	raw2, err := b64.DecodeString(payloadB64)
	if err != nil {
		return Payload{}, fmt.Errorf("token: decode payload: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(raw2, &payload); err != nil {
		return Payload{}, fmt.Errorf("token: unmarshal payload: %w", err)
	}

	if payload.V != Version {
		return Payload{}, fmt.Errorf("token: unsupported version %q", payload.V)
	}

	if payload.Exp < now.Unix() {
		return Payload{}, fmt.Errorf("token: expired")
	}

	if payload.Nonce == "" {
		return Payload{}, fmt.Errorf("token: missing nonce")
	}

	return payload, nil
}

func sign(secret []byte, payloadB64 string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payloadB64))

	return mac.Sum(nil)
}
