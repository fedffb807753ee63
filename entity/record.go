// Package entity defines loosely typed records received from the admin API
// and typed views over storybook content.
package entity

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is a single entity as received from API: books, generations and
// storybooks all share this shape. Fields are kept untyped, so merging never
// loses data the client does not know about.
type Record map[string]any

// ID returns stable identifier of the record or "" if record has none.
func (r Record) ID() string {
	for _, key := range []string{"id", "_id"} {
		if s := scalarString(r[key]); s != "" {
			return s
		}
	}
	return ""
}

// CreatedAt returns creation time stamp. Both RFC3339 strings and epoch
// milliseconds are understood.
func (r Record) CreatedAt() (time.Time, bool) {
	for _, key := range []string{"createdAt", "created_at"} {
		if t, ok := parseTime(r[key]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// String returns string field value or "" when field is absent or of
// different type.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Clone makes a shallow copy, nested values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

func scalarString(v any) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	}
	return ""
}

func parseTime(v any) (time.Time, bool) {
	switch v := v.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05", time.DateOnly} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	case float64:
		return time.UnixMilli(int64(v)).UTC(), true
	case int64:
		return time.UnixMilli(v).UTC(), true
	case int:
		return time.UnixMilli(int64(v)).UTC(), true
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	case time.Time:
		return v, !v.IsZero()
	}
	return time.Time{}, false
}

// Timestamp decodes the same time representations Record.CreatedAt accepts.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		t.Time = time.Time{}
		return nil
	}
	parsed, ok := parseTime(v)
	if !ok {
		return fmt.Errorf("unable to parse time stamp %s", data)
	}
	t.Time = parsed
	return nil
}
