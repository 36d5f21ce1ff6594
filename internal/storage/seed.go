package storage

import (
	"context"
	"fmt"

	"github.com/starford/scriptorium/internal/models"
)

// Seed populates an empty store with example subjects, documents and a
// report. It does nothing when any subject already exists.
func Seed(ctx context.Context, s Store) error {
	existing, err := s.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("seed: list subjects: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	mind, err := s.CreateSubject(ctx, models.NewSubject{
		Title:       "Philosophy of Mind",
		Description: "Reading notes and essays on consciousness and identity.",
		CoverColor:  "#fef08a",
		Visibility:  models.VisibilityPrivate,
		Tags:        []string{"philosophy", "cognition"},
	})
	if err != nil {
		return fmt.Errorf("seed: subject: %w", err)
	}

	ml, err := s.CreateSubject(ctx, models.NewSubject{
		Title:       "Machine Learning Concepts",
		Description: "Key concepts and mathematical foundations of AI.",
		CoverColor:  "#bfdbfe",
		Visibility:  models.VisibilityShared,
		Tags:        []string{"ai", "tech"},
	})
	if err != nil {
		return fmt.Errorf("seed: subject: %w", err)
	}

	descartes, err := s.CreateDocument(ctx, models.NewDocument{
		SubjectID:   mind.ID,
		Title:       "Descartes Error",
		Description: "Chapter 1 summary",
		FileName:    "descartes-error.pdf",
		Tags:        []string{"book"},
	})
	if err != nil {
		return fmt.Errorf("seed: document: %w", err)
	}

	if _, err := s.CreateReport(ctx, models.NewReport{
		SubjectID: mind.ID,
		Title:     "Notes on Dualism",
		Content: "## Overview\n\nDualism is the concept that the mind and body are distinct and separable...\n\n" +
			"### Key arguments\n\n- The knowledge argument\n- The conceivability argument\n",
		Status:            models.ReportFinal,
		Tags:              []string{"drafting"},
		LinkedDocumentIDs: []int64{descartes.ID},
	}); err != nil {
		return fmt.Errorf("seed: report: %w", err)
	}

	if _, err := s.CreateDocument(ctx, models.NewDocument{
		SubjectID:   ml.ID,
		Title:       "Attention Is All You Need",
		Description: "Original Transformer paper",
		FileName:    "attention.pdf",
		Tags:        []string{"paper", "reference"},
	}); err != nil {
		return fmt.Errorf("seed: document: %w", err)
	}

	return nil
}
