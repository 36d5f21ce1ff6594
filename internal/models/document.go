package models

import "time"

// Document is a metadata record for a file stored outside the service.
type Document struct {
	ID              int64     `json:"id"`
	SubjectID       int64     `json:"subjectId"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	FileName        string    `json:"fileName"`
	Tags            []string  `json:"tags"`
	LinkedReportIDs []int64   `json:"linkedReportIds"`
	UploadedAt      time.Time `json:"uploadedAt"`
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := *d
	c.Tags = cloneSlice(d.Tags)
	c.LinkedReportIDs = cloneSlice(d.LinkedReportIDs)
	return &c
}

// NewDocument is validated create input with defaults already applied.
type NewDocument struct {
	SubjectID       int64
	Title           string
	Description     string
	FileName        string
	Tags            []string
	LinkedReportIDs []int64
}
