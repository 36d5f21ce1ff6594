// Package models defines the domain types for Scriptorium.
package models

import (
	"slices"
	"time"
)

// Visibility controls who can see a subject.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
	VisibilityPublic  Visibility = "public"
)

// DefaultCoverColor is applied when a subject is created without a color.
const DefaultCoverColor = "#e2e8f0"

// Subject is a workspace that owns documents and reports by id reference.
type Subject struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CoverColor  string     `json:"coverColor"`
	Visibility  Visibility `json:"visibility"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy so stored records never share slices with callers.
func (s *Subject) Clone() *Subject {
	c := *s
	c.Tags = cloneSlice(s.Tags)
	return &c
}

// NewSubject is validated create input with defaults already applied.
type NewSubject struct {
	Title       string
	Description string
	CoverColor  string
	Visibility  Visibility
	Tags        []string
}

// SubjectPatch is a partial update. Nil fields are left untouched.
type SubjectPatch struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	CoverColor  *string     `json:"coverColor"`
	Visibility  *Visibility `json:"visibility"`
	Tags        *[]string   `json:"tags"`
}

// Apply merges the patch into s. Identity and timestamps are not touched.
func (p SubjectPatch) Apply(s *Subject) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.CoverColor != nil {
		s.CoverColor = *p.CoverColor
	}
	if p.Visibility != nil {
		s.Visibility = *p.Visibility
	}
	if p.Tags != nil {
		s.Tags = cloneSlice(*p.Tags)
	}
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}
