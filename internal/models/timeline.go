package models

// EventType identifies the lifecycle moment a timeline event describes.
type EventType string

const (
	EventDocumentUpload EventType = "document_upload"
	EventReportCreated  EventType = "report_created"
	EventReportUpdated  EventType = "report_updated"
)

// TimelineEvent is a derived, read-only activity record.
type TimelineEvent struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	ItemID int64     `json:"itemId"`
	Title  string    `json:"title"`
	Date   string    `json:"date"`
}
