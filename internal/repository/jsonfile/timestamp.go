package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/practice2025/supportai/internal/repository"
)

// legacyTimestampLayout is how older history files wrote timestamps, in local time.
const legacyTimestampLayout = "2006-01-02 15:04:05"

// storedRecord reads history records whose timestamp may use either layout.
type storedRecord struct {
	repository.QueryRecord
	Timestamp timestamp `json:"timestamp"`
}

type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(legacyTimestampLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("unrecognized timestamp %q", s)
	}
	t.Time = parsed.UTC()
	return nil
}
