package quiz

// CreateQuizRequest is the authoring input for a new quiz.
type CreateQuizRequest struct {
	Title       string          `json:"title"`
	TimeLimit   int             `json:"time_limit"`
	IsAnonymous bool            `json:"is_anonymous"`
	Questions   []QuestionInput `json:"questions"`
}

type QuestionInput struct {
	Text    string        `json:"text"`
	Answers []AnswerInput `json:"answers"`
}

type AnswerInput struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// QuizView is the read shape of a quiz plus its live session state.
// Answer correctness is nil unless the caller is host-privileged.
type QuizView struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	Code                 string         `json:"code"`
	TimeLimit            int            `json:"time_limit"`
	IsAnonymous          bool           `json:"is_anonymous"`
	Questions            []QuestionView `json:"questions"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	IsActive             bool           `json:"is_active"`
}

type QuestionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Order   int          `json:"order"`
	Answers []AnswerView `json:"answers"`
}

type AnswerView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Order     int    `json:"order"`
	IsCorrect *bool  `json:"is_correct"`
}

// StatsView is the per-question answer distribution for a session.
type StatsView struct {
	QuizTitle    string          `json:"quiz_title"`
	TotalPlayers int             `json:"total_players"`
	Stats        []QuestionStats `json:"stats"`
}

type QuestionStats struct {
	QuestionID   string        `json:"question_id"`
	QuestionText string        `json:"question_text"`
	Answers      []AnswerStats `json:"answers"`
}

type AnswerStats struct {
	AnswerID   string `json:"answer_id"`
	AnswerText string `json:"answer_text"`
	IsCorrect  bool   `json:"is_correct"`
	Count      int    `json:"count"`
}
