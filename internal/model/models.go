package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// User is an account on the backend.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	PhoneNumber   string    `json:"phone_number,omitempty"`
	PhoneVerified bool      `json:"phone_verified,omitempty"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	CreatedAt     Timestamp `json:"created_at"`
}

// DisplayName returns "First Last", falling back to the email address.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// timestampLayouts are tried in order; the backend emits ISO-8601 with and
// without a zone offset, and date-only values for due dates.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a time decoded leniently from the backend. Values without a
// zone are taken as UTC.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t} }

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp: %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// TokenResponse is returned by every login flavour.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// RegisterRequest carries the fields required to create an account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SMSVerifyRequest exchanges a texted code for a session. The names are used
// only when the phone number has no account yet.
type SMSVerifyRequest struct {
	PhoneNumber      string `json:"phone_number"`
	VerificationCode string `json:"verification_code"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
}

// Amount is a money or quantity value as the backend sends it. The wire form
// may be a JSON string, a JSON number or null; Amount keeps the textual form
// so that callers decide how to parse it.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding amount: %w", err)
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding amount: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// Float parses the amount. ok is false when the amount is empty or not numeric.
func (a Amount) Float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(a)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Part is a catalogue part attached to a build or its vehicle.
type Part struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Brand      string `json:"brand,omitempty"`
	PartNumber string `json:"part_number,omitempty"`
	Category   string `json:"category,omitempty"`
	Role       string `json:"role,omitempty"`
	Location   string `json:"location,omitempty"`
	Cost       Amount `json:"cost,omitempty"`
}

// MaintenanceRecord is one entry in a build's maintenance log.
type MaintenanceRecord struct {
	ID              int64  `json:"id"`
	BuildID         int64  `json:"build_id"`
	MaintenanceType string `json:"maintenance_type"`
	Timestamp       string `json:"timestamp"`
	Notes           string `json:"notes,omitempty"`
	OdometerMiles   Amount `json:"odometer_miles,omitempty"`
	EngineHours     Amount `json:"engine_hours,omitempty"`
	Cost            Amount `json:"cost,omitempty"`
	Brand           string `json:"brand,omitempty"`
	PartNumber      string `json:"part_number,omitempty"`
	Quantity        Amount `json:"quantity,omitempty"`
}

// MaintenanceInput is the request body for creating a maintenance record.
type MaintenanceInput struct {
	MaintenanceType string   `json:"maintenance_type"`
	EventDate       string   `json:"event_date"`
	Notes           string   `json:"notes,omitempty"`
	OdometerMiles   *float64 `json:"odometer_miles,omitempty"`
	EngineHours     *float64 `json:"engine_hours,omitempty"`
	Cost            *float64 `json:"cost,omitempty"`
	Brand           string   `json:"brand,omitempty"`
	PartNumber      string   `json:"part_number,omitempty"`
	Quantity        *float64 `json:"quantity,omitempty"`
}

// MaintenanceCreated is the backend response to a maintenance create. The
// backend brackets every record with a before and after snapshot.
type MaintenanceCreated struct {
	ID             int64 `json:"id"`
	SnapshotBefore int64 `json:"snapshot_before"`
	SnapshotAfter  int64 `json:"snapshot_after"`
}

// Attachment is a file uploaded against a maintenance record.
type Attachment struct {
	ID            int64  `json:"id"`
	MaintenanceID int64  `json:"maintenance_id,omitempty"`
	FilePath      string `json:"file_path"`
	FileName      string `json:"file_name,omitempty"`
	FileSizeBytes int64  `json:"file_size_bytes,omitempty"`
	FileType      string `json:"file_type,omitempty"`
	Description   string `json:"description,omitempty"`
	UploadedAt    string `json:"uploaded_at,omitempty"`
}

// Upload is the backend response to a component photo upload.
type Upload struct {
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
}
