package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"sulla-quiz-service/internal/app"
	"sulla-quiz-service/internal/domain"
)

// RESTHandler exposes quiz sessions over plain JSON requests.
type RESTHandler struct {
	service *app.QuizService
	log     logrus.FieldLogger
}

func NewRESTHandler(service *app.QuizService, log logrus.FieldLogger) *RESTHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RESTHandler{service: service, log: log}
}

type startRequest struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	PageURL string `json:"pageUrl"`
}

type answerRequest struct {
	Index *int `json:"index"`
}

// Routes mounts session endpoints under the caller's prefix.
func (h *RESTHandler) Routes(r chi.Router) {
	r.Post("/quizzes/{quizID}/sessions", h.StartSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.EndSession)
		r.Post("/answers", h.SelectAnswer)
		r.Post("/advance", h.Advance)
		r.Post("/restart", h.Restart)
	})
}

func (h *RESTHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	state, err := h.service.Start(r.Context(), app.StartRequest{
		QuizID:      chi.URLParam(r, "quizID"),
		UserID:      req.UserID,
		DisplayName: req.Name,
		PageURL:     req.PageURL,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (h *RESTHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *RESTHandler) SelectAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}
	state, err := h.service.SelectAnswer(r.Context(), chi.URLParam(r, "sessionID"), *req.Index)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *RESTHandler) Advance(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Advance(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *RESTHandler) Restart(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Restart(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *RESTHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.service.State(r.Context(), sessionID); err != nil {
		h.fail(w, err)
		return
	}
	h.service.End(r.Context(), sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("quiz request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var invalid *domain.InvalidInputError
	var cfgErr *domain.ConfigurationError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusGone
	case errors.As(err, &invalid), errors.As(err, &cfgErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}
