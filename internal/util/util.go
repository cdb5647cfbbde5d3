package util

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// defaultDataDir holds the sqlite file and local media when UNBOXME_DATA_DIR is unset.
const defaultDataDir = "data"

// DataDir returns the directory for local state: UNBOXME_DATA_DIR when set, otherwise "data".
func DataDir() string {
	if value := strings.TrimSpace(os.Getenv("UNBOXME_DATA_DIR")); value != "" {
		return filepath.Clean(value)
	}
	return defaultDataDir
}

// HideSecret obscures a secret for logging purposes, showing only the first and last few characters.
func HideSecret(secret string) string {
	if len(secret) > 8 {
		return secret[:4] + "..." + secret[len(secret)-4:]
	} else if len(secret) > 4 {
		return secret[:2] + "..." + secret[len(secret)-2:]
	} else if len(secret) > 2 {
		return secret[:1] + "..." + secret[len(secret)-1:]
	}
	return secret
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return HideSecret(email)
	}
	return email[:1] + "***" + email[at:]
}

// MaskSensitiveQuery masks sensitive query parameters, e.g. client_secret, within the raw query string.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	changed := false
	for i, part := range parts {
		if part == "" {
			continue
		}
		keyPart := part
		valuePart := ""
		if idx := strings.Index(part, "="); idx >= 0 {
			keyPart = part[:idx]
			valuePart = part[idx+1:]
		}
		decodedKey, err := url.QueryUnescape(keyPart)
		if err != nil {
			decodedKey = keyPart
		}
		if !shouldMaskQueryParam(decodedKey) {
			continue
		}
		decodedValue, err := url.QueryUnescape(valuePart)
		if err != nil {
			decodedValue = valuePart
		}
		var masked string
		if strings.Contains(strings.ToLower(decodedKey), "email") {
			masked = MaskEmail(decodedValue)
		} else {
			masked = HideSecret(strings.TrimSpace(decodedValue))
		}
		parts[i] = keyPart + "=" + url.QueryEscape(masked)
		changed = true
	}
	if !changed {
		return raw
	}
	return strings.Join(parts, "&")
}

func shouldMaskQueryParam(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	key = strings.TrimSuffix(key, "[]")
	if key == "key" || strings.Contains(key, "email") {
		return true
	}
	if strings.Contains(key, "token") || strings.Contains(key, "secret") {
		return true
	}
	return false
}
