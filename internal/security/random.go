package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// slugAlphabet avoids characters that read ambiguously in a shared link.
const slugAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// GenerateRandomString returns a hex-encoded random string of the given length.
func GenerateRandomString(length int) (string, error) {
	bytes := make([]byte, (length+1)/2)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", fmt.Errorf("generate random string: %w", err)
	}
	return hex.EncodeToString(bytes)[:length], nil
}

// GenerateSlugSuffix returns length random lowercase characters for share slugs.
func GenerateSlugSuffix(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate slug suffix: %w", err)
	}
	out := make([]byte, length)
	for i, b := range raw {
		out[i] = slugAlphabet[int(b)%len(slugAlphabet)]
	}
	return string(out), nil
}
