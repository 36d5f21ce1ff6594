package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS subjects (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT    NOT NULL,
	description TEXT    NOT NULL,
	cover_color TEXT    NOT NULL DEFAULT '#e2e8f0',
	visibility  TEXT    NOT NULL DEFAULT 'private',
	tags        TEXT    NOT NULL DEFAULT '[]',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id        INTEGER NOT NULL,
	title             TEXT    NOT NULL,
	description       TEXT    NOT NULL,
	file_name         TEXT    NOT NULL,
	tags              TEXT    NOT NULL DEFAULT '[]',
	linked_report_ids TEXT    NOT NULL DEFAULT '[]',
	uploaded_at       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id          INTEGER NOT NULL,
	title               TEXT    NOT NULL,
	content             TEXT    NOT NULL,
	status              TEXT    NOT NULL DEFAULT 'draft',
	tags                TEXT    NOT NULL DEFAULT '[]',
	linked_document_ids TEXT    NOT NULL DEFAULT '[]',
	created_at          INTEGER NOT NULL,
	updated_at          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_subject ON documents(subject_id);
CREATE INDEX IF NOT EXISTS idx_reports_subject ON reports(subject_id);
`

const (
	subjectColumns  = `id, title, description, cover_color, visibility, tags, created_at, updated_at`
	documentColumns = `id, subject_id, title, description, file_name, tags, linked_report_ids, uploaded_at`
	reportColumns   = `id, subject_id, title, content, status, tags, linked_document_ids, created_at, updated_at`
)

// SQLite is a durable Store backed by a SQLite file. Timestamps are stored as
// unix milliseconds and list fields as JSON text.
type SQLite struct {
	conn  *sql.DB
	clock clock
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Transactions take the write lock up front so concurrent updates serialize.
func OpenSQLite(path string, now func() time.Time) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn, clock: newClock(now)}, nil
}

// Close closes the underlying database connection.
func (db *SQLite) Close() error {
	return db.conn.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

// ListSubjects implements Store.
func (db *SQLite) ListSubjects(ctx context.Context) ([]*models.Subject, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+subjectColumns+` FROM subjects ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list subjects: %w", err)
	}
	defer rows.Close()

	out := []*models.Subject{}
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSubject implements Store.
func (db *SQLite) GetSubject(ctx context.Context, id int64) (*models.Subject, bool, error) {
	s, err := scanSubject(db.conn.QueryRowContext(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// CreateSubject implements Store.
func (db *SQLite) CreateSubject(ctx context.Context, in models.NewSubject) (*models.Subject, error) {
	now := db.clock.now()
	s := &models.Subject{
		Title:       in.Title,
		Description: in.Description,
		CoverColor:  in.CoverColor,
		Visibility:  in.Visibility,
		Tags:        cloneOrEmpty(in.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO subjects (title, description, cover_color, visibility, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.Title, s.Description, s.CoverColor, string(s.Visibility), mustJSON(s.Tags), millis(now), millis(now))
	if err != nil {
		return nil, fmt.Errorf("storage: insert subject: %w", err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("storage: subject id: %w", err)
	}
	return s, nil
}

// UpdateSubject implements Store.
func (db *SQLite) UpdateSubject(ctx context.Context, id int64, p models.SubjectPatch, check func(*models.Subject) error) (*models.Subject, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	s, err := scanSubject(tx.QueryRowContext(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(s); err != nil {
			return nil, err
		}
	}

	p.Apply(s)
	s.UpdatedAt = db.clock.after(s.UpdatedAt)

	_, err = tx.ExecContext(ctx, `
		UPDATE subjects
		SET title = ?, description = ?, cover_color = ?, visibility = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, s.Title, s.Description, s.CoverColor, string(s.Visibility), mustJSON(s.Tags), millis(s.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("storage: update subject: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: commit: %w", err)
	}
	return s, nil
}

// ListDocumentsBySubject implements Store.
func (db *SQLite) ListDocumentsBySubject(ctx context.Context, subjectID int64) ([]*models.Document, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE subject_id = ? ORDER BY uploaded_at DESC, id ASC`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("storage: list documents: %w", err)
	}
	defer rows.Close()

	out := []*models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateDocument implements Store.
func (db *SQLite) CreateDocument(ctx context.Context, in models.NewDocument) (*models.Document, error) {
	now := db.clock.now()
	d := &models.Document{
		SubjectID:       in.SubjectID,
		Title:           in.Title,
		Description:     in.Description,
		FileName:        in.FileName,
		Tags:            cloneOrEmpty(in.Tags),
		LinkedReportIDs: cloneOrEmpty(in.LinkedReportIDs),
		UploadedAt:      now,
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO documents (subject_id, title, description, file_name, tags, linked_report_ids, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.SubjectID, d.Title, d.Description, d.FileName, mustJSON(d.Tags), mustJSON(d.LinkedReportIDs), millis(now))
	if err != nil {
		return nil, fmt.Errorf("storage: insert document: %w", err)
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("storage: document id: %w", err)
	}
	return d, nil
}

// ListReportsBySubject implements Store.
func (db *SQLite) ListReportsBySubject(ctx context.Context, subjectID int64) ([]*models.Report, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE subject_id = ? ORDER BY updated_at DESC, id ASC`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("storage: list reports: %w", err)
	}
	defer rows.Close()

	out := []*models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetReport implements Store.
func (db *SQLite) GetReport(ctx context.Context, id int64) (*models.Report, bool, error) {
	r, err := scanReport(db.conn.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// CreateReport implements Store.
func (db *SQLite) CreateReport(ctx context.Context, in models.NewReport) (*models.Report, error) {
	now := db.clock.now()
	r := &models.Report{
		SubjectID:         in.SubjectID,
		Title:             in.Title,
		Content:           in.Content,
		Status:            in.Status,
		Tags:              cloneOrEmpty(in.Tags),
		LinkedDocumentIDs: cloneOrEmpty(in.LinkedDocumentIDs),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO reports (subject_id, title, content, status, tags, linked_document_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.SubjectID, r.Title, r.Content, string(r.Status), mustJSON(r.Tags), mustJSON(r.LinkedDocumentIDs), millis(now), millis(now))
	if err != nil {
		return nil, fmt.Errorf("storage: insert report: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("storage: report id: %w", err)
	}
	return r, nil
}

// UpdateReport implements Store.
func (db *SQLite) UpdateReport(ctx context.Context, id int64, p models.ReportPatch, check func(*models.Report) error) (*models.Report, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	r, err := scanReport(tx.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(r); err != nil {
			return nil, err
		}
	}

	p.Apply(r)
	r.UpdatedAt = db.clock.after(r.UpdatedAt)

	_, err = tx.ExecContext(ctx, `
		UPDATE reports
		SET subject_id = ?, title = ?, content = ?, status = ?, tags = ?, linked_document_ids = ?, updated_at = ?
		WHERE id = ?
	`, r.SubjectID, r.Title, r.Content, string(r.Status), mustJSON(r.Tags), mustJSON(r.LinkedDocumentIDs), millis(r.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("storage: update report: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: commit: %w", err)
	}
	return r, nil
}

func scanSubject(row scanner) (*models.Subject, error) {
	var (
		s                  models.Subject
		visibility, tags   string
		createdAt, updated int64
	)
	if err := row.Scan(&s.ID, &s.Title, &s.Description, &s.CoverColor, &visibility, &tags, &createdAt, &updated); err != nil {
		return nil, err
	}
	s.Visibility = models.Visibility(visibility)
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updated)
	if err := unmarshalList(tags, &s.Tags); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanDocument(row scanner) (*models.Document, error) {
	var (
		d          models.Document
		tags, refs string
		uploadedAt int64
	)
	if err := row.Scan(&d.ID, &d.SubjectID, &d.Title, &d.Description, &d.FileName, &tags, &refs, &uploadedAt); err != nil {
		return nil, err
	}
	d.UploadedAt = fromMillis(uploadedAt)
	if err := unmarshalList(tags, &d.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalList(refs, &d.LinkedReportIDs); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanReport(row scanner) (*models.Report, error) {
	var (
		r                    models.Report
		status, tags, refs   string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&r.ID, &r.SubjectID, &r.Title, &r.Content, &status, &tags, &refs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.Status = models.ReportStatus(status)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	if err := unmarshalList(tags, &r.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalList(refs, &r.LinkedDocumentIDs); err != nil {
		return nil, err
	}
	return &r, nil
}

func unmarshalList[T any](raw string, dst *[]T) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("storage: decode list column: %w", err)
	}
	if *dst == nil {
		*dst = []T{}
	}
	return nil
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
