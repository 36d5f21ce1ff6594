// Package timeline derives the read-only activity feed of a subject from the
// timestamps of its documents and reports.
package timeline

import (
	"slices"
	"strconv"
	"time"

	"github.com/starford/scriptorium/internal/models"
)

// UpdateThreshold is how far UpdatedAt must lie past CreatedAt before a
// report gets a separate "updated" event. Smaller gaps are creation jitter.
const UpdateThreshold = time.Second

type entry struct {
	at    time.Time
	event models.TimelineEvent
}

// Build returns one event per document upload, one per report creation and
// one per report update past UpdateThreshold, newest first. Events with equal
// timestamps keep append order: documents, then reports.
func Build(docs []*models.Document, reports []*models.Report) []models.TimelineEvent {
	entries := make([]entry, 0, len(docs)+2*len(reports))

	for _, d := range docs {
		entries = append(entries, newEntry(d.UploadedAt, models.TimelineEvent{
			ID:     "doc-" + strconv.FormatInt(d.ID, 10),
			Type:   models.EventDocumentUpload,
			ItemID: d.ID,
			Title:  "Uploaded document: " + d.Title,
		}))
	}

	for _, r := range reports {
		entries = append(entries, newEntry(r.CreatedAt, models.TimelineEvent{
			ID:     "rep-create-" + strconv.FormatInt(r.ID, 10),
			Type:   models.EventReportCreated,
			ItemID: r.ID,
			Title:  "Created report: " + r.Title,
		}))
		if r.UpdatedAt.Sub(r.CreatedAt) > UpdateThreshold {
			entries = append(entries, newEntry(r.UpdatedAt, models.TimelineEvent{
				ID:     "rep-update-" + strconv.FormatInt(r.ID, 10),
				Type:   models.EventReportUpdated,
				ItemID: r.ID,
				Title:  "Updated report: " + r.Title,
			}))
		}
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		return b.at.Compare(a.at)
	})

	out := make([]models.TimelineEvent, len(entries))
	for i, e := range entries {
		out[i] = e.event
	}
	return out
}

func newEntry(at time.Time, ev models.TimelineEvent) entry {
	ev.Date = models.FormatTime(at)
	return entry{at: at, event: ev}
}
