// Package handler exposes quiz lifecycle and attempt operations over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizforge/internal/auth/guard"
	"quizforge/internal/auth/session"
	"quizforge/internal/quiz/models"
	id "quizforge/pkg/domain"
	dErrors "quizforge/pkg/domain-errors"
	"quizforge/pkg/platform/httputil"
)

// Service is the quiz surface the handler needs.
type Service interface {
	GenerateDraft(ctx context.Context, ownerID id.UserID, req models.GenerateRequest) (*models.Quiz, error)
	GenerateDemo(ctx context.Context, req models.DemoRequest) ([]models.Question, error)
	UpdateDraft(ctx context.Context, ownerID id.UserID, quizID id.QuizID, req models.UpdateDraftRequest) (*models.Quiz, error)
	Publish(ctx context.Context, ownerID id.UserID, quizID id.QuizID, req models.PublishRequest) (*models.Quiz, error)
	Delete(ctx context.Context, ownerID id.UserID, quizID id.QuizID) error
	ListCreated(ctx context.Context, ownerID id.UserID) ([]*models.Quiz, error)
	ListAvailable(ctx context.Context) ([]*models.Quiz, error)
	Get(ctx context.Context, viewerID id.UserID, quizID id.QuizID) (*models.Quiz, error)
	SubmitAttempt(ctx context.Context, studentID id.UserID, quizID id.QuizID, req models.SubmitAttemptRequest) (*models.Attempt, error)
	QuizStatuses(ctx context.Context, studentID id.UserID) ([]models.QuizStatus, error)
	AverageScore(ctx context.Context, studentID id.UserID) (*models.ScoreSummary, error)
}

type Handler struct {
	quizzes Service
	logger  *slog.Logger
}

func New(quizzes Service, logger *slog.Logger) *Handler {
	return &Handler{quizzes: quizzes, logger: logger}
}

// Register mounts the quiz routes. Instructor routes and student routes are
// separate groups behind role requirements.
func (h *Handler) Register(r chi.Router) {
	// The demo generator backs the public landing/demo page; no session.
	r.Post("/api/demo/generate", h.handleGenerateDemo)

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(id.RoleInstructor))
		r.Post("/api/quizzes/generate", h.handleGenerate)
		r.Get("/api/quizzes/created", h.handleListCreated)
		r.Put("/api/quizzes/{quizID}", h.handleUpdateDraft)
		r.Put("/api/quizzes/{quizID}/publish", h.handlePublish)
		r.Delete("/api/quizzes/{quizID}", h.handleDelete)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(id.RoleStudent))
		r.Get("/api/quizzes/available", h.handleListAvailable)
		r.Post("/api/quizzes/{quizID}/attempts", h.handleSubmitAttempt)
		r.Get("/api/students/quiz-statuses", h.handleQuizStatuses)
		r.Get("/api/students/average-score", h.handleAverageScore)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAuthenticated)
		r.Get("/api/quizzes/{quizID}", h.handleGet)
	})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	quiz, err := h.quizzes.GenerateDraft(ctx, sess.Identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) handleGenerateDemo(w http.ResponseWriter, r *http.Request) {
	var req models.DemoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	questions, err := h.quizzes.GenerateDemo(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]models.Question{"questions": questions})
}

func (h *Handler) handleListCreated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	quizzes, err := h.quizzes.ListCreated(ctx, sess.Identity.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	quizID, err := id.ParseQuizID(chi.URLParam(r, "quizID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	quiz, err := h.quizzes.UpdateDraft(ctx, sess.Identity.UserID, quizID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quiz)
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	quizID, err := id.ParseQuizID(chi.URLParam(r, "quizID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Body is optional: publish may retitle in the same call.
	var req models.PublishRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	quiz, err := h.quizzes.Publish(ctx, sess.Identity.UserID, quizID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quiz)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	quizID, err := id.ParseQuizID(chi.URLParam(r, "quizID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.quizzes.Delete(ctx, sess.Identity.UserID, quizID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAvailable(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListAvailable(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	quizID, err := id.ParseQuizID(chi.URLParam(r, "quizID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	quiz, err := h.quizzes.Get(ctx, sess.Identity.UserID, quizID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quiz)
}

func (h *Handler) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	quizID, err := id.ParseQuizID(chi.URLParam(r, "quizID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.SubmitAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	attempt, err := h.quizzes.SubmitAttempt(ctx, sess.Identity.UserID, quizID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, attempt)
}

func (h *Handler) handleQuizStatuses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	statuses, err := h.quizzes.QuizStatuses(ctx, sess.Identity.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statuses)
}

func (h *Handler) handleAverageScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	summary, err := h.quizzes.AverageScore(ctx, sess.Identity.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
