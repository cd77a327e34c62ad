package models

import (
	"time"

	"github.com/google/uuid"
)

// Quiz is authored quiz content. Immutable after creation; live session
// state (players, responses, question index) lives in the session package.
type Quiz struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Code        string     `json:"code"`
	TimeLimit   int        `json:"time_limit"` // seconds per question
	IsAnonymous bool       `json:"is_anonymous"`
	CreatedAt   time.Time  `json:"created_at"`
	Questions   []Question `json:"questions"`
}

// Question is one prompt within a quiz, ordered by Order.
type Question struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	Order   int       `json:"order"`
	Answers []Answer  `json:"answers"`
}

// Answer is one choice within a question. IsCorrect is only exposed to
// host-privileged callers.
type Answer struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Order     int       `json:"order"`
	IsCorrect bool      `json:"is_correct"`
}
