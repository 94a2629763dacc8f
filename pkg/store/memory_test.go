package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/resumaster/resumaster/pkg/core"
	"github.com/resumaster/resumaster/pkg/resume"
)

func TestMemoryStore_SaveAssignsIDAndTimestamp(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	rec, err := s.Save(context.Background(), resume.ResumeData{FullName: "Ada"}, nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("Save did not assign an id")
	}
	if rec.Timestamp.IsZero() {
		t.Fatalf("Save did not assign a timestamp")
	}
	if rec.Analysis != nil {
		t.Fatalf("nil analysis must stay nil, got %+v", rec.Analysis)
	}
}

func TestMemoryStore_GetAllNewestFirst(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	clock := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, _ := s.Save(context.Background(), resume.ResumeData{FullName: "First"}, nil)
	second, _ := s.Save(context.Background(), resume.ResumeData{FullName: "Second"}, nil)

	all, err := s.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d records, want 2", len(all))
	}
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Fatalf("records not newest-first: %v then %v", all[0].Data.FullName, all[1].Data.FullName)
	}
}

func TestMemoryStore_GetByID(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	analysis := &resume.AIAnalysis{ATSScore: 91}
	rec, _ := s.Save(context.Background(), resume.ResumeData{FullName: "Ada"}, analysis)

	got, err := s.GetByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Data.FullName != "Ada" || got.Analysis == nil || got.Analysis.ATSScore != 91 {
		t.Fatalf("record = %+v", got)
	}

	_, err = s.GetByID(context.Background(), "missing")
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrNotFound {
		t.Fatalf("err = %v, want not_found_error", err)
	}
}

func TestMemoryStore_DeleteIdempotent(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	rec, _ := s.Save(context.Background(), resume.ResumeData{}, nil)

	if err := s.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	all, _ := s.GetAll(context.Background())
	if len(all) != 0 {
		t.Fatalf("store not empty after delete: %v", all)
	}
}
