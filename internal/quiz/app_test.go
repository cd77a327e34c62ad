package quiz

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"

	"github.com/mcdev12/quizlive/internal/session"
)

func testRequest() CreateQuizRequest {
	return CreateQuizRequest{
		Title:     "Capitals",
		TimeLimit: 30,
		Questions: []QuestionInput{
			{
				Text: "Capital of France?",
				Answers: []AnswerInput{
					{Text: "Paris", IsCorrect: true},
					{Text: "Lyon"},
					{Text: "Marseille"},
				},
			},
			{
				Text: "Capital of Japan?",
				Answers: []AnswerInput{
					{Text: "Tokyo", IsCorrect: true},
					{Text: "Osaka"},
				},
			},
		},
	}
}

func newTestApp() (*App, *session.Store, *session.Ledger) {
	repo := NewMemoryRepository()
	store := session.NewStore(repo)
	ledger := session.NewLedger()
	return NewApp(repo, store, ledger), store, ledger
}

func TestCreateQuizGeneratesShareCode(t *testing.T) {
	app, store, _ := newTestApp()

	quiz, err := app.CreateQuiz(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("failed to create quiz: %v", err)
	}

	if matched, _ := regexp.MatchString(`^[A-Z2-9]{6}$`, quiz.Code); !matched {
		t.Errorf("unexpected share code %q", quiz.Code)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	if quiz.Questions[0].Order != 0 || quiz.Questions[1].Order != 1 {
		t.Error("expected questions ordered by authoring position")
	}

	// A lobby session is registered for the new code.
	sess, err := store.Get(context.Background(), quiz.Code)
	if err != nil {
		t.Fatalf("expected session for new code: %v", err)
	}
	if index, active := sess.State(); index != 0 || active {
		t.Errorf("expected fresh lobby, got index=%d active=%v", index, active)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateQuizRequest)
	}{
		{"missing title", func(r *CreateQuizRequest) { r.Title = "" }},
		{"no questions", func(r *CreateQuizRequest) { r.Questions = nil }},
		{"question without text", func(r *CreateQuizRequest) { r.Questions[0].Text = "" }},
		{"question without answers", func(r *CreateQuizRequest) { r.Questions[0].Answers = nil }},
		{"answer without text", func(r *CreateQuizRequest) { r.Questions[0].Answers[0].Text = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testRequest()
			tc.mutate(&req)
			if _, err := app.CreateQuiz(ctx, req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateQuizDefaultsTimeLimit(t *testing.T) {
	app, _, _ := newTestApp()

	req := testRequest()
	req.TimeLimit = 0
	quiz, err := app.CreateQuiz(context.Background(), req)
	if err != nil {
		t.Fatalf("failed to create quiz: %v", err)
	}
	if quiz.TimeLimit != defaultTimeLimit {
		t.Errorf("expected default time limit %d, got %d", defaultTimeLimit, quiz.TimeLimit)
	}
}

func TestGetQuizHidesCorrectnessFromPlayers(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()

	quiz, err := app.CreateQuiz(ctx, testRequest())
	if err != nil {
		t.Fatalf("failed to create quiz: %v", err)
	}

	playerView, err := app.GetQuiz(ctx, quiz.Code, false)
	if err != nil {
		t.Fatalf("failed to get player view: %v", err)
	}
	for _, q := range playerView.Questions {
		for _, a := range q.Answers {
			if a.IsCorrect != nil {
				t.Fatal("expected correctness to be hidden from players")
			}
		}
	}

	hostView, err := app.GetQuiz(ctx, quiz.Code, true)
	if err != nil {
		t.Fatalf("failed to get host view: %v", err)
	}
	first := hostView.Questions[0].Answers[0]
	if first.IsCorrect == nil || !*first.IsCorrect {
		t.Error("expected host view to expose correctness")
	}
}

func TestGetQuizUnknownCode(t *testing.T) {
	app, _, _ := newTestApp()

	if _, err := app.GetQuiz(context.Background(), "NOPE", false); err == nil {
		t.Error("expected error for unknown code")
	}
}

func TestStatsCountLatestResponses(t *testing.T) {
	app, store, ledger := newTestApp()
	ctx := context.Background()

	quiz, err := app.CreateQuiz(ctx, testRequest())
	if err != nil {
		t.Fatalf("failed to create quiz: %v", err)
	}
	if _, err := store.Get(ctx, quiz.Code); err != nil {
		t.Fatalf("failed to get session: %v", err)
	}

	q1 := quiz.Questions[0]
	p1 := uuid.New()
	p2 := uuid.New()

	// p1 changes their mind; only the final selection may count.
	ledger.Submit(p1, q1.ID, &q1.Answers[1].ID)
	ledger.Submit(p1, q1.ID, &q1.Answers[0].ID)
	ledger.Submit(p2, q1.ID, &q1.Answers[0].ID)

	stats, err := app.Stats(ctx, quiz.Code)
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}

	first := stats.Stats[0]
	if first.Answers[0].Count != 2 {
		t.Errorf("expected 2 votes for the first answer, got %d", first.Answers[0].Count)
	}
	if first.Answers[1].Count != 0 {
		t.Errorf("expected overwritten vote to not count, got %d", first.Answers[1].Count)
	}
	if len(stats.Stats) != 2 {
		t.Errorf("expected stats for every question, got %d", len(stats.Stats))
	}
}
