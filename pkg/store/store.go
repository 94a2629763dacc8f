// Package store persists saved resumes with their analysis. Two
// implementations exist: Postgres for deployments and an in-memory store for
// tests and database-less runs.
package store

import (
	"context"

	"github.com/resumaster/resumaster/pkg/resume"
)

// Store is the saved-resume library.
type Store interface {
	// Save persists a resume snapshot with its analysis (nil when the
	// resume was never analyzed) and returns the stored record.
	Save(ctx context.Context, data resume.ResumeData, analysis *resume.AIAnalysis) (resume.SavedResume, error)

	// GetAll returns every saved resume, newest first.
	GetAll(ctx context.Context) ([]resume.SavedResume, error)

	// GetByID returns one saved resume, or a not_found_error.
	GetByID(ctx context.Context, id string) (*resume.SavedResume, error)

	// Delete removes a saved resume. Deleting an unknown id is not an
	// error.
	Delete(ctx context.Context, id string) error
}
