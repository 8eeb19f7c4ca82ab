package settings

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// dbConfigSnapshot holds the in-memory copy of the settings table.
type dbConfigSnapshot struct {
	updatedAt time.Time
	loadedAt  time.Time
	values    map[string]json.RawMessage
}

// globalDBConfig stores the latest dbConfigSnapshot atomically.
var globalDBConfig atomic.Value

func init() {
	globalDBConfig.Store(dbConfigSnapshot{values: map[string]json.RawMessage{}})
}

// StoreDBConfig replaces the in-memory snapshot of DB-backed settings.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next[key] = append(json.RawMessage(nil), v...)
	}
	globalDBConfig.Store(dbConfigSnapshot{updatedAt: updatedAt.UTC(), loadedAt: time.Now().UTC(), values: next})
}

// DBConfigUpdatedAt returns the newest update time in the snapshot.
func DBConfigUpdatedAt() time.Time {
	return loadDBConfig().updatedAt
}

// DBConfigLoadedAt returns when the snapshot was last stored. It is zero until
// the first load.
func DBConfigLoadedAt() time.Time {
	return loadDBConfig().loadedAt
}

// DBConfigValue returns a copy of the raw value for key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	val, ok := loadDBConfig().values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), val...), true
}

// Int64 returns the value for key as an integer, or def when unset or malformed.
// Numbers and numeric strings are accepted.
func Int64(key string, def int64) int64 {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	f, ok := parseNumber(raw)
	if !ok {
		return def
	}
	return int64(f)
}

// Float64 returns the value for key as a float, or def when unset or malformed.
func Float64(key string, def float64) float64 {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	f, ok := parseNumber(raw)
	if !ok {
		return def
	}
	return f
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	var num float64
	if errNum := json.Unmarshal(raw, &num); errNum == nil {
		return num, true
	}
	var text string
	if errText := json.Unmarshal(raw, &text); errText != nil {
		return 0, false
	}
	parsed, errParse := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if errParse != nil {
		return 0, false
	}
	return parsed, true
}

func loadDBConfig() dbConfigSnapshot {
	cfg, ok := globalDBConfig.Load().(dbConfigSnapshot)
	if !ok || cfg.values == nil {
		return dbConfigSnapshot{values: map[string]json.RawMessage{}}
	}
	return cfg
}
