// Package quiz provides quiz persistence: an in-memory store for unit tests
// and local development, and a PostgreSQL store for production.
package quiz

import (
	"context"
	"sort"
	"sync"

	"quizforge/internal/quiz/models"
	id "quizforge/pkg/domain"
	"quizforge/pkg/platform/sentinel"
)

// InMemoryStore keeps quizzes in a map guarded by a RWMutex. Values are
// copied on the way in and out so callers cannot alias store state.
type InMemoryStore struct {
	mu      sync.RWMutex
	quizzes map[id.QuizID]*models.Quiz
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{quizzes: make(map[id.QuizID]*models.Quiz)}
}

func (s *InMemoryStore) Create(_ context.Context, q *models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quizzes[q.ID]; exists {
		return sentinel.ErrConflict
	}
	s.quizzes[q.ID] = copyQuiz(q)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, quizID id.QuizID) (*models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyQuiz(q), nil
}

func (s *InMemoryStore) Update(_ context.Context, q *models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[q.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.quizzes[q.ID] = copyQuiz(q)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, quizID id.QuizID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

// ListByOwner returns the owner's quizzes, newest first.
func (s *InMemoryStore) ListByOwner(_ context.Context, ownerID id.UserID) ([]*models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Quiz
	for _, q := range s.quizzes {
		if q.OwnerID == ownerID {
			out = append(out, copyQuiz(q))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListByStatus returns quizzes in the given state, newest first.
func (s *InMemoryStore) ListByStatus(_ context.Context, status models.Status) ([]*models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Quiz
	for _, q := range s.quizzes {
		if q.Status == status {
			out = append(out, copyQuiz(q))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(quizzes []*models.Quiz) {
	sort.Slice(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
}

func copyQuiz(q *models.Quiz) *models.Quiz {
	out := *q
	out.Questions = make([]models.Question, len(q.Questions))
	copy(out.Questions, q.Questions)
	for i := range out.Questions {
		if q.Questions[i].Options != nil {
			out.Questions[i].Options = append([]string(nil), q.Questions[i].Options...)
		}
	}
	return &out
}
