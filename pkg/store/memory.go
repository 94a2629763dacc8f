package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resumaster/resumaster/pkg/core"
	"github.com/resumaster/resumaster/pkg/resume"
)

// MemoryStore keeps saved resumes in process memory. It backs tests and
// server runs without a DATABASE_URL.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]resume.SavedResume
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]resume.SavedResume),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, data resume.ResumeData, analysis *resume.AIAnalysis) (resume.SavedResume, error) {
	rec := resume.SavedResume{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		Data:      data,
		Analysis:  analysis,
	}
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *MemoryStore) GetAll(ctx context.Context) ([]resume.SavedResume, error) {
	s.mu.RLock()
	out := make([]resume.SavedResume, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*resume.SavedResume, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, core.NewNotFoundError("saved resume " + id + " not found")
	}
	return &rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
	return nil
}
