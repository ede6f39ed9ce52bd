package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Candidate Status
// -----------------------------------------------------------------------------

// Status is the hiring stage of a candidate.
type Status string

const (
	StatusNew          Status = "New"
	StatusInterviewing Status = "Interviewing"
	StatusHired        Status = "Hired"
	StatusRejected     Status = "Rejected"
)

// Statuses lists every valid status in pipeline order.
var Statuses = []Status{StatusNew, StatusInterviewing, StatusHired, StatusRejected}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInterviewing, StatusHired, StatusRejected:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status. Matching is case-insensitive
// and ignores surrounding whitespace.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown candidate status %q", s)
}

// -----------------------------------------------------------------------------
// Relational Types
// -----------------------------------------------------------------------------

// Candidate is a row of the candidates table.
type Candidate struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id,omitempty"`
	FullName        string    `json:"full_name"`
	AppliedPosition string    `json:"applied_position"`
	Status          Status    `json:"status"`
	ResumeURL       string    `json:"resume_url"`
	CreatedAt       Timestamp `json:"created_at"`
}

// TempIDPrefix marks optimistic rows not yet confirmed by the store.
const TempIDPrefix = "temp-"

// IsTemporary reports whether the candidate is an unconfirmed optimistic row.
func (c Candidate) IsTemporary() bool {
	return strings.HasPrefix(c.ID, TempIDPrefix)
}

// User is an authenticated account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// Owner identifies who is creating a candidate. The hosted backend
// authorizes with AccessToken; the postgres backend records UserID.
type Owner struct {
	UserID      string
	AccessToken string
}

// Resume describes an uploaded resume object.
type Resume struct {
	FileName  string `json:"fileName"`
	PublicURL string `json:"publicUrl"`
	Size      int64  `json:"fileSize"`
}

// -----------------------------------------------------------------------------
// Timestamps
// -----------------------------------------------------------------------------

// Timestamp is a time.Time that decodes the textual forms Postgres produces
// through PostgREST, realtime payloads and row_to_json.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses s using the accepted Postgres layouts. Layouts
// without a zone are interpreted as UTC.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("parse timestamp %q", s)
}

// MarshalJSON encodes the zero time as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts null, "" and any of the accepted layouts.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
