package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/models"
)

// table is one record kind held in memory. Every read and write, including
// the whole read-modify-write of an update, happens under mu.
type table[T any] struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*T
	clone  func(*T) *T
}

func newTable[T any](clone func(*T) *T) *table[T] {
	return &table[T]{nextID: 1, rows: make(map[int64]*T), clone: clone}
}

func (t *table[T]) insert(build func(id int64) *T) *T {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	row := build(id)
	t.rows[id] = row
	return t.clone(row)
}

func (t *table[T]) get(id int64) (*T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	return t.clone(row), true
}

// update runs check against the current row, then applies mutate to a copy
// and swaps it in. Both happen under the write lock.
func (t *table[T]) update(id int64, check func(*T) error, mutate func(*T)) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if check != nil {
		if err := check(t.clone(row)); err != nil {
			return nil, err
		}
	}
	next := t.clone(row)
	mutate(next)
	t.rows[id] = next
	return t.clone(next), nil
}

// filter returns copies of matching rows in insertion (id) order.
func (t *table[T]) filter(keep func(*T) bool) []*T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int64, 0, len(t.rows))
	for id, row := range t.rows {
		if keep(row) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]*T, len(ids))
	for i, id := range ids {
		out[i] = t.clone(t.rows[id])
	}
	return out
}

// Memory is an in-process Store. State lives as long as the process.
type Memory struct {
	clock     clock
	subjects  *table[models.Subject]
	documents *table[models.Document]
	reports   *table[models.Report]
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store. now may be nil.
func NewMemory(now func() time.Time) *Memory {
	return &Memory{
		clock:     newClock(now),
		subjects:  newTable((*models.Subject).Clone),
		documents: newTable((*models.Document).Clone),
		reports:   newTable((*models.Report).Clone),
	}
}

// ListSubjects implements Store.
func (m *Memory) ListSubjects(_ context.Context) ([]*models.Subject, error) {
	out := m.subjects.filter(func(*models.Subject) bool { return true })
	sortNewestFirst(out, func(s *models.Subject) time.Time { return s.UpdatedAt })
	return out, nil
}

// GetSubject implements Store.
func (m *Memory) GetSubject(_ context.Context, id int64) (*models.Subject, bool, error) {
	s, ok := m.subjects.get(id)
	return s, ok, nil
}

// CreateSubject implements Store.
func (m *Memory) CreateSubject(_ context.Context, in models.NewSubject) (*models.Subject, error) {
	now := m.clock.now()
	return m.subjects.insert(func(id int64) *models.Subject {
		return &models.Subject{
			ID:          id,
			Title:       in.Title,
			Description: in.Description,
			CoverColor:  in.CoverColor,
			Visibility:  in.Visibility,
			Tags:        cloneOrEmpty(in.Tags),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}), nil
}

// UpdateSubject implements Store.
func (m *Memory) UpdateSubject(_ context.Context, id int64, p models.SubjectPatch, check func(*models.Subject) error) (*models.Subject, error) {
	return m.subjects.update(id, check, func(s *models.Subject) {
		p.Apply(s)
		s.UpdatedAt = m.clock.after(s.UpdatedAt)
	})
}

// ListDocumentsBySubject implements Store.
func (m *Memory) ListDocumentsBySubject(_ context.Context, subjectID int64) ([]*models.Document, error) {
	out := m.documents.filter(func(d *models.Document) bool { return d.SubjectID == subjectID })
	sortNewestFirst(out, func(d *models.Document) time.Time { return d.UploadedAt })
	return out, nil
}

// CreateDocument implements Store.
func (m *Memory) CreateDocument(_ context.Context, in models.NewDocument) (*models.Document, error) {
	now := m.clock.now()
	return m.documents.insert(func(id int64) *models.Document {
		return &models.Document{
			ID:              id,
			SubjectID:       in.SubjectID,
			Title:           in.Title,
			Description:     in.Description,
			FileName:        in.FileName,
			Tags:            cloneOrEmpty(in.Tags),
			LinkedReportIDs: cloneOrEmpty(in.LinkedReportIDs),
			UploadedAt:      now,
		}
	}), nil
}

// ListReportsBySubject implements Store.
func (m *Memory) ListReportsBySubject(_ context.Context, subjectID int64) ([]*models.Report, error) {
	out := m.reports.filter(func(r *models.Report) bool { return r.SubjectID == subjectID })
	sortNewestFirst(out, func(r *models.Report) time.Time { return r.UpdatedAt })
	return out, nil
}

// GetReport implements Store.
func (m *Memory) GetReport(_ context.Context, id int64) (*models.Report, bool, error) {
	r, ok := m.reports.get(id)
	return r, ok, nil
}

// CreateReport implements Store.
func (m *Memory) CreateReport(_ context.Context, in models.NewReport) (*models.Report, error) {
	now := m.clock.now()
	return m.reports.insert(func(id int64) *models.Report {
		return &models.Report{
			ID:                id,
			SubjectID:         in.SubjectID,
			Title:             in.Title,
			Content:           in.Content,
			Status:            in.Status,
			Tags:              cloneOrEmpty(in.Tags),
			LinkedDocumentIDs: cloneOrEmpty(in.LinkedDocumentIDs),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}), nil
}

// UpdateReport implements Store.
func (m *Memory) UpdateReport(_ context.Context, id int64, p models.ReportPatch, check func(*models.Report) error) (*models.Report, error) {
	return m.reports.update(id, check, func(r *models.Report) {
		p.Apply(r)
		r.UpdatedAt = m.clock.after(r.UpdatedAt)
	})
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// sortNewestFirst orders rows by descending timestamp. The sort is stable so
// rows with equal timestamps keep insertion order.
func sortNewestFirst[T any](rows []*T, ts func(*T) time.Time) {
	slices.SortStableFunc(rows, func(a, b *T) int {
		return ts(b).Compare(ts(a))
	})
}

func cloneOrEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}
