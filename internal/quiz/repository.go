package quiz

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/quizlive/internal/models"
	"github.com/mcdev12/quizlive/internal/session"
)

// ErrNotFound is returned when no quiz exists for a code. It matches
// session.ErrNotFound so the session store can tell a genuine miss from a
// repository failure.
var ErrNotFound = fmt.Errorf("quiz: %w", session.ErrNotFound)

// Repository persists authored quiz content. Live session state never
// touches it; losing the process only loses presence, not quizzes.
type Repository interface {
	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuizByCode(ctx context.Context, code string) (*models.Quiz, error)
}

// MemoryRepository is an in-memory Repository used in tests and when the
// server runs without a database.
type MemoryRepository struct {
	mu      sync.RWMutex
	quizzes map[string]*models.Quiz
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		quizzes: make(map[string]*models.Quiz),
	}
}

// CreateQuiz stores a quiz by code.
func (r *MemoryRepository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quizzes[quiz.Code] = quiz
	return nil
}

// GetQuizByCode returns the quiz for a code or ErrNotFound.
func (r *MemoryRepository) GetQuizByCode(ctx context.Context, code string) (*models.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quiz, ok := r.quizzes[code]
	if !ok {
		return nil, ErrNotFound
	}
	return quiz, nil
}
