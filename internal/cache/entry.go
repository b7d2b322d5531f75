package cache

import (
	"bytes"
	"encoding/json"
	"time"
)

// entry is the serialized form written to the store:
//
//	{"data": <payload>, "timestamp": <ms since epoch>}
type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func (e entry) storedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// age is measured in whole milliseconds, the resolution of the timestamp.
func (e entry) age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-e.Timestamp) * time.Millisecond
}

// expired reports whether the entry has outlived ttl. An entry exactly ttl
// old is still fresh.
func (e entry) expired(now time.Time, ttl time.Duration) bool {
	return e.age(now) > ttl
}

// empty reports a missing or JSON-null payload.
func (e entry) empty() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) == 0 || bytes.Equal(d, []byte("null"))
}

// EntryStatus describes one stored entry for diagnostics.
type EntryStatus struct {
	Exists   bool          `json:"exists"`
	StoredAt time.Time     `json:"-"`
	Age      time.Duration `json:"-"`
}

// MarshalJSON renders timestamps and ages in milliseconds, with nulls for a
// missing entry.
func (s EntryStatus) MarshalJSON() ([]byte, error) {
	out := struct {
		Exists    bool   `json:"exists"`
		Timestamp *int64 `json:"timestamp"`
		Age       *int64 `json:"age"`
	}{Exists: s.Exists}
	if s.Exists {
		ts := s.StoredAt.UnixMilli()
		age := s.Age.Milliseconds()
		out.Timestamp = &ts
		out.Age = &age
	}
	return json.Marshal(out)
}

// StatusReport is the result of Cache.Status.
type StatusReport struct {
	Entries  map[Domain]EntryStatus `json:"entries"`
	LastSync EntryStatus            `json:"lastSync"`
}
