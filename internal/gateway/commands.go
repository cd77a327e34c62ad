package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/internal/session"
)

// CommandHandler defines what the gateway needs from the session
// coordinator.
type CommandHandler interface {
	JoinGame(ctx context.Context, connID, code, name string) error
	JoinHost(ctx context.Context, connID, code string) error
	StartQuiz(ctx context.Context, code string) error
	NextQuestion(ctx context.Context, code string) error
	SelectAnswer(ctx context.Context, code string, playerID, questionID uuid.UUID, answerID *uuid.UUID) error
	TerminateQuiz(ctx context.Context, code string) error
	Heartbeat(connID string)
	Disconnect(connID string)
}

// Command actions accepted from clients.
const (
	ActionJoinGame      = "join_game"
	ActionJoinHost      = "join_host"
	ActionStartQuiz     = "start_quiz"
	ActionNextQuestion  = "next_question"
	ActionSelectAnswer  = "select_answer"
	ActionTerminateQuiz = "terminate_quiz"
	ActionHeartbeat     = "heartbeat"
)

// Command is the JSON shape of inbound client messages.
type Command struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type joinGamePayload struct {
	PlayerName string `json:"player_name"`
}

type selectAnswerPayload struct {
	PlayerID   string  `json:"player_id"`
	QuestionID string  `json:"question_id"`
	AnswerID   *string `json:"answer_id"`
}

func (c *Connection) handleClientMessage(message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.sendError("malformed command")
		return
	}

	ctx := context.Background()
	handler := c.Manager.handler

	var err error
	switch cmd.Action {
	case ActionJoinGame:
		var p joinGamePayload
		if err = json.Unmarshal(cmd.Data, &p); err == nil {
			err = handler.JoinGame(ctx, c.ID, c.Code, p.PlayerName)
		}
	case ActionJoinHost:
		err = handler.JoinHost(ctx, c.ID, c.Code)
	case ActionStartQuiz:
		err = handler.StartQuiz(ctx, c.Code)
	case ActionNextQuestion:
		err = handler.NextQuestion(ctx, c.Code)
	case ActionSelectAnswer:
		err = c.handleSelectAnswer(ctx, cmd.Data)
	case ActionTerminateQuiz:
		err = handler.TerminateQuiz(ctx, c.Code)
	case ActionHeartbeat:
		handler.Heartbeat(c.ID)
	default:
		c.sendError(fmt.Sprintf("unknown action %q", cmd.Action))
		return
	}

	// NotFound and InvalidState are benign; the coordinator has already
	// surfaced or swallowed them per its contract.
	if err != nil {
		log.Debug().
			Err(err).
			Str("conn_id", c.ID).
			Str("quiz_code", c.Code).
			Str("action", cmd.Action).
			Msg("command not applied")
	}
}

func (c *Connection) handleSelectAnswer(ctx context.Context, data json.RawMessage) error {
	var p selectAnswerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.sendError("malformed select_answer payload")
		return err
	}

	playerID, err := uuid.Parse(p.PlayerID)
	if err != nil {
		c.sendError("invalid player_id")
		return err
	}
	questionID, err := uuid.Parse(p.QuestionID)
	if err != nil {
		c.sendError("invalid question_id")
		return err
	}

	var answerID *uuid.UUID
	if p.AnswerID != nil {
		id, err := uuid.Parse(*p.AnswerID)
		if err != nil {
			c.sendError("invalid answer_id")
			return err
		}
		answerID = &id
	}

	return c.Manager.handler.SelectAnswer(ctx, c.Code, playerID, questionID, answerID)
}

// sendError pushes an error event straight to this connection, bypassing
// the bus; malformed input never becomes a broadcast.
func (c *Connection) sendError(message string) {
	event := session.NewEvent(c.Code, session.EventTypeError, session.ErrorPayload{Message: message})
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	select {
	case c.Send <- data:
	default:
		log.Warn().Str("conn_id", c.ID).Msg("dropping error event, send buffer full")
	}
}
