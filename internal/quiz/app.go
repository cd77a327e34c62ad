package quiz

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/internal/models"
	"github.com/mcdev12/quizlive/internal/session"
)

const (
	codeLength       = 6
	codeAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeGenAttempts  = 5
	defaultTimeLimit = 30
)

// App handles quiz authoring and the read-only query surface. Authored
// content goes through the repository; live tallies come from the
// session ledger.
type App struct {
	repo   Repository
	store  *session.Store
	ledger *session.Ledger
}

// NewApp creates a quiz App.
func NewApp(repo Repository, store *session.Store, ledger *session.Ledger) *App {
	return &App{
		repo:   repo,
		store:  store,
		ledger: ledger,
	}
}

// CreateQuiz validates and persists authored content under a fresh share
// code, and registers a lobby session for it.
func (a *App) CreateQuiz(ctx context.Context, req CreateQuizRequest) (*models.Quiz, error) {
	if err := validateCreateQuizRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	code, err := a.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	timeLimit := req.TimeLimit
	if timeLimit <= 0 {
		timeLimit = defaultTimeLimit
	}

	quiz := &models.Quiz{
		ID:          uuid.New(),
		Title:       req.Title,
		Code:        code,
		TimeLimit:   timeLimit,
		IsAnonymous: req.IsAnonymous,
		CreatedAt:   time.Now(),
	}
	for qIdx, q := range req.Questions {
		question := models.Question{
			ID:    uuid.New(),
			Text:  q.Text,
			Order: qIdx,
		}
		for aIdx, ans := range q.Answers {
			question.Answers = append(question.Answers, models.Answer{
				ID:        uuid.New(),
				Text:      ans.Text,
				IsCorrect: ans.IsCorrect,
				Order:     aIdx,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := a.repo.CreateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}
	a.store.Create(quiz)

	log.Info().Str("quiz_code", code).Str("quiz_id", quiz.ID.String()).Msg("quiz created")
	return quiz, nil
}

// GetQuiz returns quiz content plus live session state. Answer
// correctness is included only for host-privileged callers.
func (a *App) GetQuiz(ctx context.Context, code string, hostView bool) (*QuizView, error) {
	sess, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	index, active := sess.State()
	quiz := sess.Quiz

	view := &QuizView{
		ID:                   quiz.ID.String(),
		Title:                quiz.Title,
		Code:                 quiz.Code,
		TimeLimit:            quiz.TimeLimit,
		IsAnonymous:          quiz.IsAnonymous,
		CurrentQuestionIndex: index,
		IsActive:             active,
	}
	for _, q := range quiz.Questions {
		qv := QuestionView{ID: q.ID.String(), Text: q.Text, Order: q.Order}
		for _, ans := range q.Answers {
			av := AnswerView{ID: ans.ID.String(), Text: ans.Text, Order: ans.Order}
			if hostView {
				correct := ans.IsCorrect
				av.IsCorrect = &correct
			}
			qv.Answers = append(qv.Answers, av)
		}
		view.Questions = append(view.Questions, qv)
	}
	return view, nil
}

// Stats returns per-question answer distributions from the live ledger,
// counting only each player's latest selection.
func (a *App) Stats(ctx context.Context, code string) (*StatsView, error) {
	sess, err := a.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	quiz := sess.Quiz
	view := &StatsView{
		QuizTitle:    quiz.Title,
		TotalPlayers: sess.PlayerCount(),
	}

	for _, q := range quiz.Questions {
		tally := a.ledger.Tally(q.ID)
		qs := QuestionStats{
			QuestionID:   q.ID.String(),
			QuestionText: q.Text,
		}
		for _, ans := range q.Answers {
			qs.Answers = append(qs.Answers, AnswerStats{
				AnswerID:   ans.ID.String(),
				AnswerText: ans.Text,
				IsCorrect:  ans.IsCorrect,
				Count:      tally[ans.ID],
			})
		}
		view.Stats = append(view.Stats, qs)
	}
	return view, nil
}

// generateCode draws share codes until one is unused. The alphabet skips
// the ambiguous 0/O/1/I glyphs.
func (a *App) generateCode(ctx context.Context) (string, error) {
	for range codeGenAttempts {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		_, err = a.repo.GetQuizByCode(ctx, code)
		if errors.Is(err, ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check code collision: %w", err)
		}
		log.Warn().Str("quiz_code", code).Msg("share code collision, regenerating")
	}
	return "", errors.New("failed to generate unique share code")
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

func validateCreateQuizRequest(req CreateQuizRequest) error {
	if req.Title == "" {
		return errors.New("title is required")
	}
	if len(req.Questions) == 0 {
		return errors.New("at least one question is required")
	}
	for i, q := range req.Questions {
		if q.Text == "" {
			return fmt.Errorf("question %d: text is required", i)
		}
		if len(q.Answers) == 0 {
			return fmt.Errorf("question %d: at least one answer is required", i)
		}
		for j, ans := range q.Answers {
			if ans.Text == "" {
				return fmt.Errorf("question %d answer %d: text is required", i, j)
			}
		}
	}
	return nil
}
