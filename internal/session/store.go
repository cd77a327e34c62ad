package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/quizlive/internal/models"
	"github.com/rs/zerolog/log"
)

// Session is the in-memory live state of one quiz run. The authored quiz
// content is immutable; everything else is mutated only by the Coordinator
// under mu.
type Session struct {
	mu sync.Mutex

	Quiz         *models.Quiz
	Players      map[uuid.UUID]*models.Player
	CurrentIndex int
	IsActive     bool
}

func newSession(quiz *models.Quiz) *Session {
	return &Session{
		Quiz:    quiz,
		Players: make(map[uuid.UUID]*models.Player),
	}
}

// State returns the current question index and active flag.
func (s *Session) State() (index int, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CurrentIndex, s.IsActive
}

// PlayerCount returns the number of joined players.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Players)
}

// Roster returns a snapshot of the joined players.
func (s *Session) Roster() []models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rosterLocked()
}

func (s *Session) rosterLocked() []models.Player {
	players := make([]models.Player, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, *p)
	}
	return players
}

// resetLocked returns the session to an empty lobby, keeping the authored
// content. Caller holds mu.
func (s *Session) resetLocked() {
	s.Players = make(map[uuid.UUID]*models.Player)
	s.CurrentIndex = 0
	s.IsActive = false
}

// QuizLoader hydrates authored quiz content for codes the store has not
// seen yet, so a restarted process keeps serving existing codes.
// Implementations report unknown codes with an error matching ErrNotFound;
// any other error is an infrastructure failure.
type QuizLoader interface {
	GetQuizByCode(ctx context.Context, code string) (*models.Quiz, error)
}

// Store is the in-memory registry of active sessions keyed by quiz code.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	loader   QuizLoader
}

// NewStore creates a session store. loader may be nil, in which case
// unknown codes are simply not found.
func NewStore(loader QuizLoader) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		loader:   loader,
	}
}

// Create registers a fresh lobby session for authored quiz content.
func (s *Store) Create(quiz *models.Quiz) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := newSession(quiz)
	s.sessions[quiz.Code] = sess
	return sess
}

// Get looks up the session for a code, falling back to the loader on a
// miss. Returns ErrNotFound for unknown codes.
func (s *Store) Get(ctx context.Context, code string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[code]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	if s.loader == nil {
		return nil, ErrNotFound
	}

	quiz, err := s.loader.GetQuizByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		// A repository failure must not read as a stale code.
		return nil, fmt.Errorf("load quiz %s: %w", code, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have hydrated the same code meanwhile.
	if sess, ok := s.sessions[code]; ok {
		return sess, nil
	}
	sess = newSession(quiz)
	s.sessions[code] = sess
	log.Debug().Str("quiz_code", code).Msg("session hydrated from repository")
	return sess, nil
}
