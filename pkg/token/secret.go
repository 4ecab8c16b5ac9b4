package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SecretFromSalt derives the HMAC server secret: the configured salt
// padded with '0' to at least 32 bytes, or, when salt is empty, a fresh
// random 16-byte value hex-encoded and padded the same way. Call once at
// startup; the result is immutable for the process lifetime.
func SecretFromSalt(salt string) ([]byte, error) {
	if salt != "" {
		return []byte(padTo(salt, 32)), nil
	}

	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("token: generate server secret: %w", err)
	}

	return []byte(padTo(hex.EncodeToString(raw), 32)), nil
}

func padTo(s string, n int) string {
	for len(s) < n {
		s += "0"
	}

	return s
}
