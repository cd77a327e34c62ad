package quiz

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/internal/session"
)

// Service exposes the quiz authoring and read-only query endpoints.
type Service struct {
	app *App
}

// NewService creates the HTTP service over the quiz App.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes registers the quiz endpoints with an HTTP mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quiz", s.handleCreateQuiz)
	mux.HandleFunc("GET /api/quiz/{code}", s.handleGetQuiz)
	mux.HandleFunc("GET /api/quiz/{code}/stats", s.handleStats)
}

func (s *Service) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req CreateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quiz, err := s.app.CreateQuiz(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("failed to create quiz")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"code":    quiz.Code,
		"quiz_id": quiz.ID.String(),
	})
}

func (s *Service) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	hostView := r.URL.Query().Get("host") == "true"

	view, err := s.app.GetQuiz(r.Context(), code, hostView)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		log.Error().Err(err).Str("quiz_code", code).Msg("failed to get quiz")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	stats, err := s.app.Stats(r.Context(), code)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		log.Error().Err(err).Str("quiz_code", code).Msg("failed to get stats")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
