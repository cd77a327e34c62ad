package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is the envelope for everything emitted to a session's audience.
type Event struct {
	ID        string          `json:"id"`
	QuizCode  string          `json:"quiz_code"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType identifies the kind of session event.
type EventType string

const (
	EventTypePlayerJoined    EventType = "player_joined"
	EventTypePlayersList     EventType = "players_list"
	EventTypeQuizState       EventType = "quiz_state"
	EventTypeQuizStarted     EventType = "quiz_started"
	EventTypeQuestionChanged EventType = "question_changed"
	EventTypeQuizEnded       EventType = "quiz_ended"
	EventTypeTimerUpdate     EventType = "timer_update"
	EventTypeTimeExpired     EventType = "time_expired"
	EventTypeAnswerSelected  EventType = "answer_selected"
	EventTypeQuizTerminated  EventType = "quiz_terminated"
	EventTypeError           EventType = "error"
)

// PlayerInfo is the roster entry shape shared by several payloads.
type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type PlayerJoinedPayload struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
}

type PlayersListPayload struct {
	Players []PlayerInfo `json:"players"`
}

// QuizStatePayload reconstructs session state for a client joining a
// running quiz. PlayerAnswers maps player ID to the answer ID currently
// selected for the active question.
type QuizStatePayload struct {
	IsActive             bool              `json:"is_active"`
	CurrentQuestionIndex int               `json:"current_question_index"`
	PlayerAnswers        map[string]string `json:"player_answers"`
}

type QuizStartedPayload struct {
	QuestionIndex int `json:"question_index"`
}

type QuestionChangedPayload struct {
	QuestionIndex int `json:"question_index"`
}

type TimerUpdatePayload struct {
	TimeLeft int `json:"time_left"`
}

type AnswerSelectedPayload struct {
	PlayerID    string  `json:"player_id"`
	PlayerName  string  `json:"player_name"`
	PlayerColor string  `json:"player_color"`
	AnswerID    *string `json:"answer_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// NewEvent builds an event envelope around a payload.
func NewEvent(code string, typ EventType, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to marshal event payload")
		data = []byte("{}")
	}

	return Event{
		ID:        uuid.New().String(),
		QuizCode:  code,
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Broadcaster delivers events to a session's audience. Broadcast reaches
// every subscriber of the code; Unicast reaches only the named connection.
// Implementations must preserve publish order per code.
type Broadcaster interface {
	Broadcast(code string, event Event)
	Unicast(code string, connID string, event Event)
}
