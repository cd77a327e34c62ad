package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/quizlive/internal/models"
	"github.com/mcdev12/quizlive/internal/sqlutil"
)

// PostgresRepository persists authored quizzes in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository over an open connection.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the authoring tables if they do not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS quizzes (
	id           UUID PRIMARY KEY,
	title        TEXT NOT NULL,
	code         TEXT NOT NULL UNIQUE,
	time_limit   INT NOT NULL DEFAULT 30,
	is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS questions (
	id       UUID PRIMARY KEY,
	quiz_id  UUID NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
	text     TEXT NOT NULL,
	ord      INT NOT NULL
);
CREATE TABLE IF NOT EXISTS answers (
	id          UUID PRIMARY KEY,
	question_id UUID NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	text        TEXT NOT NULL,
	is_correct  BOOLEAN NOT NULL DEFAULT FALSE,
	ord         INT NOT NULL
);`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate quiz schema: %w", err)
	}
	return nil
}

// CreateQuiz inserts a quiz with its questions and answers in one
// transaction.
func (r *PostgresRepository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO quizzes (id, title, code, time_limit, is_anonymous, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			quiz.ID, quiz.Title, quiz.Code, quiz.TimeLimit, quiz.IsAnonymous, quiz.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert quiz: %w", err)
		}

		for _, q := range quiz.Questions {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO questions (id, quiz_id, text, ord) VALUES ($1, $2, $3, $4)`,
				q.ID, quiz.ID, q.Text, q.Order)
			if err != nil {
				return fmt.Errorf("failed to insert question: %w", err)
			}

			for _, a := range q.Answers {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO answers (id, question_id, text, is_correct, ord)
					 VALUES ($1, $2, $3, $4, $5)`,
					a.ID, q.ID, a.Text, a.IsCorrect, a.Order)
				if err != nil {
					return fmt.Errorf("failed to insert answer: %w", err)
				}
			}
		}
		return nil
	})
}

// GetQuizByCode loads a quiz with questions and answers ordered by
// position. Returns ErrNotFound for unknown codes.
func (r *PostgresRepository) GetQuizByCode(ctx context.Context, code string) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, code, time_limit, is_anonymous, created_at
		 FROM quizzes WHERE code = $1`, code).
		Scan(&quiz.ID, &quiz.Title, &quiz.Code, &quiz.TimeLimit, &quiz.IsAnonymous, &quiz.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	questions, err := r.loadQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	quiz.Questions = questions

	return &quiz, nil
}

func (r *PostgresRepository) loadQuestions(ctx context.Context, quizID uuid.UUID) ([]models.Question, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, ord FROM questions WHERE quiz_id = $1 ORDER BY ord`, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Order); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}

	for i := range questions {
		answers, err := r.loadAnswers(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Answers = answers
	}
	return questions, nil
}

func (r *PostgresRepository) loadAnswers(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, is_correct, ord FROM answers WHERE question_id = $1 ORDER BY ord`, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.Text, &a.IsCorrect, &a.Order); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate answers: %w", err)
	}
	return answers, nil
}
