package models

import (
	"encoding/json"
	"time"
)

// TimeLayout is the wire format of every timestamp: ISO-8601 in UTC with
// exactly three fractional digits.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// MarshalJSON writes timestamps in TimeLayout.
func (s Subject) MarshalJSON() ([]byte, error) {
	type alias Subject
	return json.Marshal(struct {
		alias
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}{alias(s), FormatTime(s.CreatedAt), FormatTime(s.UpdatedAt)})
}

// MarshalJSON writes timestamps in TimeLayout.
func (d Document) MarshalJSON() ([]byte, error) {
	type alias Document
	return json.Marshal(struct {
		alias
		UploadedAt string `json:"uploadedAt"`
	}{alias(d), FormatTime(d.UploadedAt)})
}

// MarshalJSON writes timestamps in TimeLayout.
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(struct {
		alias
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}{alias(r), FormatTime(r.CreatedAt), FormatTime(r.UpdatedAt)})
}
