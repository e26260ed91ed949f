// Package attempt provides persistence for graded quiz attempts.
package attempt

import (
	"context"
	"sort"
	"sync"

	"quizforge/internal/quiz/models"
	id "quizforge/pkg/domain"
)

// InMemoryStore keeps attempts in a slice guarded by a RWMutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	attempts []*models.Attempt
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Create(_ context.Context, a *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, copyAttempt(a))
	return nil
}

// ListByStudent returns a student's attempts, newest first.
func (s *InMemoryStore) ListByStudent(_ context.Context, studentID id.UserID) ([]*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Attempt
	for _, a := range s.attempts {
		if a.StudentID == studentID {
			out = append(out, copyAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

func copyAttempt(a *models.Attempt) *models.Attempt {
	out := *a
	out.Results = append([]models.QuestionResult(nil), a.Results...)
	return &out
}
