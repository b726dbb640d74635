// Package store provides storage backends for InterviewPipe.
//
// This file implements the in-memory store used by tests and deployments
// that do not need persistence.
package store

import (
	"sort"
	"sync"

	"github.com/danualab/InterviewPipe/internal/models"
)

// InMemoryStore keeps archived interviews and reports in process memory.
type InMemoryStore struct {
	mu         sync.RWMutex
	interviews []models.InterviewRecord
	reports    []models.ReportRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SaveInterviewResult(rec models.InterviewRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.Answers = copyAnswers(rec.Answers)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviews = append(s.interviews, rec)
	return nil
}

func (s *InMemoryStore) GetInterviewResult(id string) (*models.InterviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.interviews {
		if s.interviews[i].ID == id {
			rec := s.interviews[i]
			rec.Answers = copyAnswers(rec.Answers)
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListInterviewResults(userID string) ([]models.InterviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.InterviewRecord
	for _, rec := range s.interviews {
		if userID != "" && rec.UserID != userID {
			continue
		}
		rec.Answers = copyAnswers(rec.Answers)
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) SaveReport(rec models.ReportRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, rec)
	return nil
}

func (s *InMemoryStore) ListReports(userID string) ([]models.ReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReportRecord
	for _, rec := range s.reports {
		if userID != "" && rec.UserID != userID {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

// copyAnswers clones an answers map so stored records stay isolated from
// later session mutations.
func copyAnswers(answers map[int]string) map[int]string {
	if answers == nil {
		return nil
	}
	out := make(map[int]string, len(answers))
	for k, v := range answers {
		out[k] = v
	}
	return out
}
