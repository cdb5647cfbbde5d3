package settings

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot is an immutable view of the settings table.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var current atomic.Pointer[snapshot]

func init() {
	current.Store(&snapshot{values: map[string]json.RawMessage{}})
}

// StoreSnapshot replaces the in-memory settings. Keys are trimmed; blank keys are dropped.
func StoreSnapshot(updatedAt time.Time, values map[string]json.RawMessage) {
	next := &snapshot{updatedAt: updatedAt.UTC(), values: make(map[string]json.RawMessage, len(values))}
	for k, v := range values {
		if key := strings.TrimSpace(k); key != "" {
			next.values[key] = append(json.RawMessage(nil), v...)
		}
	}
	current.Store(next)
}

// SnapshotUpdatedAt returns the newest updated_at seen by the last refresh.
func SnapshotUpdatedAt() time.Time {
	return current.Load().updatedAt
}

// Lookup returns a copy of the raw value stored for key.
func Lookup(key string) (json.RawMessage, bool) {
	val, ok := current.Load().values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), val...), true
}
