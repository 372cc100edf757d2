package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/quizmind/apiserver/internal/services"
)

// PreferenceHandler serves the preference and topic endpoints.
type PreferenceHandler struct {
	prefService *services.PreferenceService
	logger      *slog.Logger
}

func NewPreferenceHandler(prefService *services.PreferenceService, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{prefService: prefService, logger: logger}
}

// PreferenceRouter registers preference and topic routes. Every route
// requires an authenticated user.
func PreferenceRouter(
	r chi.Router,
	prefService *services.PreferenceService,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) {
	handler := NewPreferenceHandler(prefService, logger)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/preferences", handler.CreatePreference)
		r.Get("/preferences", handler.GetPreference)
		r.Put("/preferences", handler.UpdatePreference)
		r.Post("/topics", handler.CreateTopic)
		r.Get("/topics", handler.ListTopics)
	})
}

func (h *PreferenceHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, msgNotAuthenticated)
		return
	}
	in, ok := decodePreferenceRequest(w, r)
	if !ok {
		return
	}

	pref, err := h.prefService.CreatePreference(r.Context(), user.ID, in)
	if err != nil {
		h.writePreferenceError(w, err, "failed to create preferences")
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

func (h *PreferenceHandler) GetPreference(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, msgNotAuthenticated)
		return
	}

	pref, err := h.prefService.GetPreference(r.Context(), user.ID)
	if err != nil {
		h.writePreferenceError(w, err, "failed to fetch preferences")
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

func (h *PreferenceHandler) UpdatePreference(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, msgNotAuthenticated)
		return
	}
	in, ok := decodePreferenceRequest(w, r)
	if !ok {
		return
	}

	pref, err := h.prefService.UpdatePreference(r.Context(), user.ID, in)
	if err != nil {
		h.writePreferenceError(w, err, "failed to update preferences")
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

func (h *PreferenceHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req TopicRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	topic, err := h.prefService.CreateTopic(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateTopic) {
			writeError(w, http.StatusBadRequest, "Topic already exists")
			return
		}
		h.logger.Error("create topic failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create topic")
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (h *PreferenceHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.prefService.ListTopics(r.Context())
	if err != nil {
		h.logger.Error("list topics failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list topics")
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (h *PreferenceHandler) writePreferenceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrDuplicatePreference):
		writeError(w, http.StatusBadRequest, "User preferences already exist. Please update your preferences.")
	case errors.Is(err, services.ErrUnknownTopic):
		writeError(w, http.StatusBadRequest, "One or more topics not found")
	case errors.Is(err, services.ErrPreferenceNotFound):
		writeError(w, http.StatusNotFound, "User preferences not found")
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// decodePreferenceRequest writes a 400 and reports false when the body is
// unusable.
func decodePreferenceRequest(w http.ResponseWriter, r *http.Request) (services.PreferenceInput, bool) {
	var req PreferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return services.PreferenceInput{}, false
	}
	if strings.TrimSpace(req.DifficultyLevel) == "" || strings.TrimSpace(req.QuizFormat) == "" || req.Topics == nil {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return services.PreferenceInput{}, false
	}
	return services.PreferenceInput{
		DifficultyLevel: req.DifficultyLevel,
		QuizFormat:      req.QuizFormat,
		TopicIDs:        req.Topics,
	}, true
}

type PreferenceRequest struct {
	DifficultyLevel string `json:"difficulty_level"`
	QuizFormat      string `json:"quiz_format"`
	Topics          []int  `json:"topics"`
}

type TopicRequest struct {
	Name string `json:"name"`
}
