// Package workspace coordinates validation, storage, change events and the
// timeline for subjects and the documents and reports they own.
package workspace

import (
	"context"
	"errors"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/checksum"
	"github.com/starford/scriptorium/internal/metrics"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/schema"
	"github.com/starford/scriptorium/internal/sse"
	"github.com/starford/scriptorium/internal/storage"
	"github.com/starford/scriptorium/internal/timeline"
)

// Record kinds, used in metrics labels and not-found messages.
const (
	KindSubject  = "subject"
	KindDocument = "document"
	KindReport   = "report"
)

// Notifier receives a call after every successful write.
type Notifier interface {
	PublishChange(kind string, subjectID, id int64)
}

type nopNotifier struct{}

func (nopNotifier) PublishChange(string, int64, int64) {}

// Service is the application layer shared by the HTTP API and the MCP server.
type Service struct {
	store  storage.Store
	events Notifier
}

// NewService creates a service over store. events may be nil.
func NewService(store storage.Store, events Notifier) *Service {
	if events == nil {
		events = nopNotifier{}
	}
	return &Service{store: store, events: events}
}

// ListSubjects returns all subjects, most recently updated first.
func (s *Service) ListSubjects(ctx context.Context) ([]*models.Subject, error) {
	return s.store.ListSubjects(ctx)
}

// GetSubject returns apperr.ErrNotFound when id does not exist.
func (s *Service) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	subj, ok, err := s.store.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return subj, nil
}

// CreateSubject validates a JSON create body and stores the subject.
func (s *Service) CreateSubject(ctx context.Context, body []byte) (*models.Subject, error) {
	in, err := schema.DecodeSubjectCreate(body)
	if err != nil {
		return nil, rejected(KindSubject, err)
	}
	subj, err := s.store.CreateSubject(ctx, in)
	if err != nil {
		return nil, err
	}
	s.written(sse.SubjectCreated, KindSubject, "create", subj.ID, subj.ID)
	return subj, nil
}

// UpdateSubject validates a JSON partial body and merges it into subject id.
// A non-empty ifMatch must equal the subject's current ETag; "*" matches any
// existing subject.
func (s *Service) UpdateSubject(ctx context.Context, id int64, body []byte, ifMatch string) (*models.Subject, error) {
	patch, err := schema.DecodeSubjectPatch(body)
	if err != nil {
		return nil, rejected(KindSubject, err)
	}
	subj, err := s.store.UpdateSubject(ctx, id, patch, precondition[models.Subject](ifMatch))
	if err != nil {
		return nil, err
	}
	s.written(sse.SubjectUpdated, KindSubject, "update", subj.ID, subj.ID)
	return subj, nil
}

// ListDocuments returns the documents of a subject, newest upload first.
func (s *Service) ListDocuments(ctx context.Context, subjectID int64) ([]*models.Document, error) {
	return s.store.ListDocumentsBySubject(ctx, subjectID)
}

// CreateDocument validates a JSON create body and stores the document.
func (s *Service) CreateDocument(ctx context.Context, body []byte) (*models.Document, error) {
	in, err := schema.DecodeDocumentCreate(body)
	if err != nil {
		return nil, rejected(KindDocument, err)
	}
	doc, err := s.store.CreateDocument(ctx, in)
	if err != nil {
		return nil, err
	}
	s.written(sse.DocumentCreated, KindDocument, "create", doc.SubjectID, doc.ID)
	return doc, nil
}

// ListReports returns the reports of a subject, most recently updated first.
func (s *Service) ListReports(ctx context.Context, subjectID int64) ([]*models.Report, error) {
	return s.store.ListReportsBySubject(ctx, subjectID)
}

// GetReport returns apperr.ErrNotFound when id does not exist.
func (s *Service) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	rep, ok, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return rep, nil
}

// CreateReport validates a JSON create body and stores the report.
func (s *Service) CreateReport(ctx context.Context, body []byte) (*models.Report, error) {
	in, err := schema.DecodeReportCreate(body)
	if err != nil {
		return nil, rejected(KindReport, err)
	}
	rep, err := s.store.CreateReport(ctx, in)
	if err != nil {
		return nil, err
	}
	s.written(sse.ReportCreated, KindReport, "create", rep.SubjectID, rep.ID)
	return rep, nil
}

// UpdateReport validates a JSON partial body and merges it into report id.
// A non-empty ifMatch must equal the report's current ETag; "*" matches any
// existing report.
func (s *Service) UpdateReport(ctx context.Context, id int64, body []byte, ifMatch string) (*models.Report, error) {
	patch, err := schema.DecodeReportPatch(body)
	if err != nil {
		return nil, rejected(KindReport, err)
	}
	rep, err := s.store.UpdateReport(ctx, id, patch, precondition[models.Report](ifMatch))
	if err != nil {
		return nil, err
	}
	s.written(sse.ReportUpdated, KindReport, "update", rep.SubjectID, rep.ID)
	return rep, nil
}

// Timeline returns the activity feed of a subject, newest first.
func (s *Service) Timeline(ctx context.Context, subjectID int64) ([]models.TimelineEvent, error) {
	docs, err := s.store.ListDocumentsBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	reports, err := s.store.ListReportsBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return timeline.Build(docs, reports), nil
}

// ETag returns the entity tag of a stored record.
func ETag(v any) (string, error) {
	return checksum.Of(v)
}

// precondition turns an If-Match value into a store check that runs against
// the current record in the same critical section as the write.
func precondition[T any](ifMatch string) func(*T) error {
	if ifMatch == "" || ifMatch == "*" {
		return nil
	}
	return func(current *T) error {
		return matchETag(current, ifMatch)
	}
}

func matchETag(current any, ifMatch string) error {
	tag, err := ETag(current)
	if err != nil {
		return err
	}
	if tag != ifMatch {
		return apperr.ErrConflict
	}
	return nil
}

func (s *Service) written(event, kind, op string, subjectID, id int64) {
	metrics.RecordWrites.WithLabelValues(kind, op).Inc()
	s.events.PublishChange(event, subjectID, id)
}

func rejected(kind string, err error) error {
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		metrics.ValidationFailures.WithLabelValues(kind).Inc()
	}
	return err
}
