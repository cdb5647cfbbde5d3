package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
)

// SiteName returns the configured UI site name.
func SiteName() string {
	if raw, ok := Lookup(SiteNameKey); ok {
		if name := parseSettingString(raw); name != "" {
			return name
		}
	}
	return DefaultSiteName
}

// Limits returns the builder limits from the current snapshot.
func Limits() giftbox.Limits {
	return giftbox.Limits{
		MaxCards:           positiveInt(MaxCardsKey, DefaultMaxCards),
		MaxUnlockDelayDays: positiveInt(MaxUnlockDelayDaysKey, DefaultMaxUnlockDelayDays),
	}
}

// OrderAbandonAfter returns how long an order may stay pending.
func OrderAbandonAfter() time.Duration {
	return time.Duration(positiveInt(OrderAbandonAfterHoursKey, DefaultOrderAbandonAfterHours)) * time.Hour
}

func positiveInt(key string, fallback int) int {
	raw, ok := Lookup(key)
	if !ok {
		return fallback
	}
	parsed, okParse := parseSettingInt(raw)
	if !okParse || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseSettingInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if errUnmarshal := json.Unmarshal(raw, &n); errUnmarshal == nil {
		return n, true
	}
	var f float64
	if errUnmarshal := json.Unmarshal(raw, &f); errUnmarshal == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(math.Round(f)), true
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(s))
		if errParse == nil {
			return parsed, true
		}
	}
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && len(wrapper.Value) > 0 {
		return parseSettingInt(wrapper.Value)
	}
	return 0, false
}

func parseSettingString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		return strings.TrimSpace(s)
	}
	var wrapper struct {
		Value string `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil {
		return strings.TrimSpace(wrapper.Value)
	}
	return ""
}
