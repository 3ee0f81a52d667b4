package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampFormat is RFC3339 with millisecond precision. Timestamps are
// always rendered in UTC, so the zone designator is "Z".
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is a wall-clock instant encoded with TimestampFormat.
type Timestamp time.Time

// NewTimestamp converts t to UTC and truncates it to milliseconds.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Truncate(time.Millisecond))
}

// Time returns the underlying time value.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// String formats the timestamp as it appears on the wire.
func (t Timestamp) String() string {
	return time.Time(t).UTC().Format(TimestampFormat)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler. Any RFC3339 input is accepted
// and normalized to UTC.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = NewTimestamp(parsed)
	return nil
}

// Equal reports whether t and u are the same instant.
func (t Timestamp) Equal(u Timestamp) bool {
	return time.Time(t).Equal(time.Time(u))
}
