// Package storage is the single source of truth for subject, document and
// report state. Callers depend on Store; the engine behind it is chosen once
// at startup.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/scriptorium/internal/models"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Store provides CRUD and subject-scoped listing for all record kinds.
// Records are never deleted.
type Store interface {
	// ListSubjects returns every subject, most recently updated first.
	ListSubjects(ctx context.Context) ([]*models.Subject, error)
	// GetSubject looks up a subject by id. A missing subject is reported
	// with ok == false, not an error.
	GetSubject(ctx context.Context, id int64) (s *models.Subject, ok bool, err error)
	CreateSubject(ctx context.Context, in models.NewSubject) (*models.Subject, error)
	// UpdateSubject merges p into the subject and refreshes UpdatedAt.
	// It returns apperr.ErrNotFound when id does not exist. A non-nil check
	// sees the current record inside the same lock or transaction as the
	// write; an error from it aborts the update and is returned as is.
	UpdateSubject(ctx context.Context, id int64, p models.SubjectPatch, check func(*models.Subject) error) (*models.Subject, error)

	// ListDocumentsBySubject returns documents of one subject, most recently
	// uploaded first.
	ListDocumentsBySubject(ctx context.Context, subjectID int64) ([]*models.Document, error)
	CreateDocument(ctx context.Context, in models.NewDocument) (*models.Document, error)

	// ListReportsBySubject returns reports of one subject, most recently
	// updated first.
	ListReportsBySubject(ctx context.Context, subjectID int64) ([]*models.Report, error)
	GetReport(ctx context.Context, id int64) (r *models.Report, ok bool, err error)
	CreateReport(ctx context.Context, in models.NewReport) (*models.Report, error)
	UpdateReport(ctx context.Context, id int64, p models.ReportPatch, check func(*models.Report) error) (*models.Report, error)

	Close() error
}

// Open builds the store for the given driver. now may be nil.
func Open(driver, sqlitePath string, now func() time.Time) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemory(now), nil
	case DriverSQLite:
		db, err := OpenSQLite(sqlitePath, now)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}

// clock stamps records at millisecond precision in UTC, the resolution
// timestamps are exposed with.
type clock func() time.Time

func newClock(now func() time.Time) clock {
	if now == nil {
		now = time.Now
	}
	return clock(now)
}

func (c clock) now() time.Time {
	return c().UTC().Truncate(time.Millisecond)
}

// after returns the current time, or prev plus one millisecond when the clock
// has not moved past prev, so UpdatedAt strictly increases.
func (c clock) after(prev time.Time) time.Time {
	now := c.now()
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Millisecond)
}
