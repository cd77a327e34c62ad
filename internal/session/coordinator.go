package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/quizlive/internal/models"
	"github.com/rs/zerolog/log"
)

// colorPalette is the fixed set of display colors assigned to players.
var colorPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F7DC6F", "#BB8FCE", "#85C1E2", "#F8B739", "#52B788",
}

// nameSuffixAttempts bounds the retries when a random two-digit suffix
// itself collides with a live name. The suffix is a best-effort
// disambiguator, not a uniqueness guarantee.
const nameSuffixAttempts = 3

// Coordinator is the state machine driving session lifecycle. It is the
// sole mutator of session state and the sole emitter of broadcasts. Every
// command holds sess.mu across its state change, its liveness and timer
// work, and its emissions, so concurrent commands for one session cannot
// interleave and every session has a single total order of events.
type Coordinator struct {
	store       *Store
	presence    *PresenceTracker
	timers      *TimerTable
	ledger      *Ledger
	broadcaster Broadcaster
}

// NewCoordinator wires the coordinator to its session-state components.
func NewCoordinator(store *Store, presence *PresenceTracker, timers *TimerTable, ledger *Ledger, b Broadcaster) *Coordinator {
	return &Coordinator{
		store:       store,
		presence:    presence,
		timers:      timers,
		ledger:      ledger,
		broadcaster: b,
	}
}

// JoinGame adds a player to a session under a name unique among currently
// live players, registers its liveness, and announces it. The player is
// named, stored, and registered live in one critical section, so a
// concurrent joiner always sees it as a live name holder, and the roster
// it receives always contains the player the audience was just told
// about.
func (c *Coordinator) JoinGame(ctx context.Context, connID, code, name string) error {
	sess, err := c.store.Get(ctx, code)
	if err != nil {
		c.unicastLookupFailure(code, connID, err)
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	live := c.presence.LivePlayers(code)
	name = resolveName(sess, live, name)

	player := &models.Player{
		ID:       uuid.New(),
		Name:     name,
		Color:    colorPalette[rand.IntN(len(colorPalette))],
		ConnID:   connID,
		JoinedAt: time.Now(),
	}
	sess.Players[player.ID] = player

	c.presence.Register(connID, player.ID, code)
	c.presence.StartSweep()

	c.broadcaster.Broadcast(code, NewEvent(code, EventTypePlayerJoined, PlayerJoinedPayload{
		PlayerID: player.ID.String(),
		Name:     player.Name,
		Color:    player.Color,
	}))
	c.broadcaster.Unicast(code, connID, NewEvent(code, EventTypePlayersList, PlayersListPayload{
		Players: toPlayerInfos(sess.rosterLocked()),
	}))
	if sess.IsActive {
		index := sess.CurrentIndex
		var playerAnswers map[string]string
		if index < len(sess.Quiz.Questions) {
			playerAnswers = make(map[string]string)
			for playerID, answerID := range c.ledger.Snapshot(sess.Quiz.Questions[index].ID) {
				playerAnswers[playerID.String()] = answerID.String()
			}
		}
		c.broadcaster.Unicast(code, connID, NewEvent(code, EventTypeQuizState, QuizStatePayload{
			IsActive:             true,
			CurrentQuestionIndex: index,
			PlayerAnswers:        playerAnswers,
		}))
	}

	log.Info().
		Str("quiz_code", code).
		Str("player_id", player.ID.String()).
		Str("player_name", player.Name).
		Msg("player joined")
	return nil
}

// JoinHost subscribes a host observer to a session. No player is created;
// the host only receives the current roster.
func (c *Coordinator) JoinHost(ctx context.Context, connID, code string) error {
	sess, err := c.store.Get(ctx, code)
	if err != nil {
		c.unicastLookupFailure(code, connID, err)
		return err
	}

	c.broadcaster.Unicast(code, connID, NewEvent(code, EventTypePlayersList, PlayersListPayload{
		Players: toPlayerInfos(sess.Roster()),
	}))
	return nil
}

// StartQuiz transitions Lobby -> Running: question index 0, announce, and
// start the first countdown. Already-running sessions and quizzes with no
// questions are a logged no-op.
func (c *Coordinator) StartQuiz(ctx context.Context, code string) error {
	sess, err := c.store.Get(ctx, code)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.IsActive || len(sess.Quiz.Questions) == 0 {
		log.Debug().Str("quiz_code", code).Msg("start ignored: already running or empty quiz")
		return ErrInvalidState
	}
	sess.IsActive = true
	sess.CurrentIndex = 0

	c.broadcaster.Broadcast(code, NewEvent(code, EventTypeQuizStarted, QuizStartedPayload{QuestionIndex: 0}))
	c.timers.Start(code, sess.Quiz.TimeLimit)

	log.Info().Str("quiz_code", code).Msg("quiz started")
	return nil
}

// NextQuestion stops the current countdown, advances the index, and either
// announces the next question with a fresh countdown or ends the quiz.
// quiz_ended is emitted exactly once; further calls are a no-op.
func (c *Coordinator) NextQuestion(ctx context.Context, code string) error {
	sess, err := c.store.Get(ctx, code)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.IsActive || sess.CurrentIndex >= len(sess.Quiz.Questions) {
		log.Debug().Str("quiz_code", code).Msg("advance ignored: not running or already ended")
		return ErrInvalidState
	}

	// The old countdown must be fully stopped before the index moves, so a
	// late tick can never be attributed to the new question.
	c.timers.Stop(code)

	sess.CurrentIndex++
	index := sess.CurrentIndex

	if index < len(sess.Quiz.Questions) {
		c.broadcaster.Broadcast(code, NewEvent(code, EventTypeQuestionChanged, QuestionChangedPayload{QuestionIndex: index}))
		c.timers.Start(code, sess.Quiz.TimeLimit)
		log.Info().Str("quiz_code", code).Int("question_index", index).Msg("question changed")
	} else {
		c.broadcaster.Broadcast(code, NewEvent(code, EventTypeQuizEnded, struct{}{}))
		log.Info().Str("quiz_code", code).Msg("quiz ended")
	}
	return nil
}

// SelectAnswer records a player's latest selection and announces it with
// the player's identity so the host view can tally live. Unknown players
// and codes are silently ignored.
func (c *Coordinator) SelectAnswer(ctx context.Context, code string, playerID, questionID uuid.UUID, answerID *uuid.UUID) error {
	sess, err := c.store.Get(ctx, code)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	player, ok := sess.Players[playerID]
	if !ok {
		log.Debug().Str("quiz_code", code).Str("player_id", playerID.String()).Msg("answer from unknown player ignored")
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}

	c.ledger.Submit(playerID, questionID, answerID)

	var answer *string
	if answerID != nil {
		s := answerID.String()
		answer = &s
	}
	c.broadcaster.Broadcast(code, NewEvent(code, EventTypeAnswerSelected, AnswerSelectedPayload{
		PlayerID:    playerID.String(),
		PlayerName:  player.Name,
		PlayerColor: player.Color,
		AnswerID:    answer,
	}))
	return nil
}

// TerminateQuiz resets a session back to an empty lobby: all players and
// responses are deleted, the countdown stops, and the audience is told to
// disconnect. Authored content survives, so the same code can run again.
func (c *Coordinator) TerminateQuiz(ctx context.Context, code string) error {
	sess, err := c.store.Get(ctx, code)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	c.timers.Stop(code)

	playerIDs := make([]uuid.UUID, 0, len(sess.Players))
	for id := range sess.Players {
		playerIDs = append(playerIDs, id)
	}
	sess.resetLocked()

	c.ledger.DeleteAll(playerIDs)

	c.broadcaster.Broadcast(code, NewEvent(code, EventTypeQuizTerminated, struct{}{}))
	log.Info().Str("quiz_code", code).Int("players_removed", len(playerIDs)).Msg("quiz terminated")
	return nil
}

// Heartbeat refreshes the liveness record for a connection.
func (c *Coordinator) Heartbeat(connID string) {
	c.presence.Touch(connID)
}

// Disconnect drops the liveness record for a connection. Player and
// response data stay untouched; the staleness sweep applies the same
// policy to connections that vanish without notice.
func (c *Coordinator) Disconnect(connID string) {
	c.presence.Forget(connID)
}

// unicastLookupFailure reports a failed session lookup to the requesting
// connection only. Genuine misses read as an unknown code; repository
// failures do not.
func (c *Coordinator) unicastLookupFailure(code, connID string, err error) {
	message := "quiz not found"
	if !errors.Is(err, ErrNotFound) {
		log.Error().Err(err).Str("quiz_code", code).Msg("session lookup failed")
		message = "internal error"
	}
	c.broadcaster.Unicast(code, connID, NewEvent(code, EventTypeError, ErrorPayload{Message: message}))
}

// resolveName disambiguates a requested name against currently live
// players only, appending a random two-digit suffix on collision. Names
// whose prior holder is no longer live are free to reuse. Caller holds
// sess.mu.
func resolveName(sess *Session, live map[uuid.UUID]bool, name string) string {
	if !nameTakenLocked(sess, live, name) {
		return name
	}

	candidate := name
	for range nameSuffixAttempts {
		candidate = fmt.Sprintf("%s%02d", name, 10+rand.IntN(90))
		if !nameTakenLocked(sess, live, candidate) {
			break
		}
	}
	return candidate
}

func nameTakenLocked(sess *Session, live map[uuid.UUID]bool, name string) bool {
	for id, p := range sess.Players {
		if live[id] && p.Name == name {
			return true
		}
	}
	return false
}

func toPlayerInfos(players []models.Player) []PlayerInfo {
	infos := make([]PlayerInfo, 0, len(players))
	for _, p := range players {
		infos = append(infos, PlayerInfo{ID: p.ID.String(), Name: p.Name, Color: p.Color})
	}
	return infos
}
