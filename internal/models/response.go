package models

import (
	"time"

	"github.com/google/uuid"
)

// Response is a player's latest answer to a question. At most one exists
// per (player, question) pair; resubmitting overwrites. AnswerID is nil
// when the player cleared their selection.
type Response struct {
	PlayerID   uuid.UUID  `json:"player_id"`
	QuestionID uuid.UUID  `json:"question_id"`
	AnswerID   *uuid.UUID `json:"answer_id"`
	Timestamp  time.Time  `json:"timestamp"`
}
