package models

import "time"

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	ReportDraft    ReportStatus = "draft"
	ReportFinal    ReportStatus = "final"
	ReportArchived ReportStatus = "archived"
)

// Report is a free-text authored artifact. Content may hold Markdown.
type Report struct {
	ID                int64        `json:"id"`
	SubjectID         int64        `json:"subjectId"`
	Title             string       `json:"title"`
	Content           string       `json:"content"`
	Status            ReportStatus `json:"status"`
	Tags              []string     `json:"tags"`
	LinkedDocumentIDs []int64      `json:"linkedDocumentIds"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// Clone returns a deep copy of r.
func (r *Report) Clone() *Report {
	c := *r
	c.Tags = cloneSlice(r.Tags)
	c.LinkedDocumentIDs = cloneSlice(r.LinkedDocumentIDs)
	return &c
}

// NewReport is validated create input with defaults already applied.
type NewReport struct {
	SubjectID         int64
	Title             string
	Content           string
	Status            ReportStatus
	Tags              []string
	LinkedDocumentIDs []int64
}

// ReportPatch is a partial update. Nil fields are left untouched.
type ReportPatch struct {
	SubjectID         *int64        `json:"subjectId"`
	Title             *string       `json:"title"`
	Content           *string       `json:"content"`
	Status            *ReportStatus `json:"status"`
	Tags              *[]string     `json:"tags"`
	LinkedDocumentIDs *[]int64      `json:"linkedDocumentIds"`
}

// Apply merges the patch into r. Identity and timestamps are not touched.
func (p ReportPatch) Apply(r *Report) {
	if p.SubjectID != nil {
		r.SubjectID = *p.SubjectID
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Tags != nil {
		r.Tags = cloneSlice(*p.Tags)
	}
	if p.LinkedDocumentIDs != nil {
		r.LinkedDocumentIDs = cloneSlice(*p.LinkedDocumentIDs)
	}
}
