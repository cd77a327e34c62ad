package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/quizlive/internal/models"
)

type responseKey struct {
	playerID   uuid.UUID
	questionID uuid.UUID
}

// Ledger records each player's latest answer per question. Submissions are
// idempotent upserts: a player changing their mind overwrites the previous
// row, so tallies never double count.
type Ledger struct {
	mu        sync.RWMutex
	responses map[responseKey]*models.Response
}

// NewLedger creates an empty answer ledger.
func NewLedger() *Ledger {
	return &Ledger{
		responses: make(map[responseKey]*models.Response),
	}
}

// Submit upserts the response for (player, question) with a fresh
// timestamp. answerID may be nil when the player clears their selection.
func (l *Ledger) Submit(playerID, questionID uuid.UUID, answerID *uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.responses[responseKey{playerID, questionID}] = &models.Response{
		PlayerID:   playerID,
		QuestionID: questionID,
		AnswerID:   answerID,
		Timestamp:  time.Now(),
	}
}

// Tally counts, per answer, how many players currently have it selected
// for a question. Cleared (nil) selections are not counted.
func (l *Ledger) Tally(questionID uuid.UUID) map[uuid.UUID]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[uuid.UUID]int)
	for key, resp := range l.responses {
		if key.questionID == questionID && resp.AnswerID != nil {
			counts[*resp.AnswerID]++
		}
	}
	return counts
}

// Snapshot returns each player's current selection for a question, used to
// reconstruct state for clients joining mid-question.
func (l *Ledger) Snapshot(questionID uuid.UUID) map[uuid.UUID]uuid.UUID {
	l.mu.RLock()
	defer l.mu.RUnlock()

	answers := make(map[uuid.UUID]uuid.UUID)
	for key, resp := range l.responses {
		if key.questionID == questionID && resp.AnswerID != nil {
			answers[key.playerID] = *resp.AnswerID
		}
	}
	return answers
}

// DeleteAll removes every response belonging to the given players.
func (l *Ledger) DeleteAll(playerIDs []uuid.UUID) {
	drop := make(map[uuid.UUID]bool, len(playerIDs))
	for _, id := range playerIDs {
		drop[id] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.responses {
		if drop[key.playerID] {
			delete(l.responses, key)
		}
	}
}
