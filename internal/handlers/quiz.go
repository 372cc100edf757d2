package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/quizmind/apiserver/internal/services"
	"github.com/quizmind/apiserver/types"
)

type QuizHandler struct {
	quizService *services.QuizService
	logger      *slog.Logger
}

func NewQuizHandler(quizService *services.QuizService, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{quizService: quizService, logger: logger}
}

// QuizRouter registers the quiz generation route.
func QuizRouter(
	r chi.Router,
	quizService *services.QuizService,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) {
	handler := NewQuizHandler(quizService, logger)
	r.With(authMiddleware).Post("/generate-quiz", handler.GenerateQuiz)
}

// GenerateQuiz generates questions for the acting user. The optional
// user_id query parameter must name that same user.
func (h *QuizHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, msgNotAuthenticated)
		return
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		requested, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		if requested != user.ID {
			writeError(w, http.StatusForbidden, "Not allowed to generate a quiz for another user")
			return
		}
	}

	questions, err := h.quizService.GenerateQuiz(r.Context(), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPreferenceNotFound):
			writeError(w, http.StatusNotFound, "User preferences not found")
		case errors.Is(err, services.ErrNoTopics):
			writeError(w, http.StatusNotFound, "No topics found for user")
		case errors.Is(err, services.ErrGenerationTimeout):
			h.logger.Warn("quiz generation timed out", "user_id", user.ID, "error", err)
			writeError(w, http.StatusGatewayTimeout, "Quiz generation timed out")
		case errors.Is(err, services.ErrGenerationParse):
			writeError(w, http.StatusBadGateway, "Quiz generation returned an invalid response")
		case errors.Is(err, services.ErrGenerationFailed):
			h.logger.Error("quiz generation failed", "user_id", user.ID, "error", err)
			writeError(w, http.StatusBadGateway, "Quiz generation failed")
		default:
			h.logger.Error("generate quiz", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to generate quiz")
		}
		return
	}

	writeJSON(w, http.StatusOK, QuizResponse{Quiz: questions})
}

type QuizResponse struct {
	Quiz []types.QuizQuestion `json:"quiz"`
}
