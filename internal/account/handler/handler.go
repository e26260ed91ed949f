// Package handler exposes account operations over HTTP. Handlers decode,
// validate transport-level shape, and delegate; the service owns the rules.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"quizforge/internal/account/models"
	"quizforge/internal/auth/cookies"
	"quizforge/internal/auth/guard"
	authmodels "quizforge/internal/auth/models"
	"quizforge/internal/auth/session"
	id "quizforge/pkg/domain"
	dErrors "quizforge/pkg/domain-errors"
	"quizforge/pkg/platform/httputil"
	"quizforge/pkg/requestcontext"
)

// Service is the account surface the handler needs.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*authmodels.Identity, error)
	Login(ctx context.Context, req models.LoginRequest) (*authmodels.LoginResult, error)
	Logout(ctx context.Context, identity authmodels.Identity)
	Me(ctx context.Context, userID id.UserID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID id.UserID, req models.UpdateProfileRequest) (*models.ProfileUpdate, error)
	ListStudents(ctx context.Context) ([]models.StudentSummary, error)
	UpdateStudent(ctx context.Context, studentID id.UserID, req models.UpdateStudentRequest) (*models.StudentSummary, error)
	DeleteStudent(ctx context.Context, studentID id.UserID) error
}

type Handler struct {
	accounts Service
	cookies  *cookies.Manager
	logger   *slog.Logger
}

func New(accounts Service, cookieManager *cookies.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		cookies:  cookieManager,
		logger:   logger,
	}
}

// Register mounts the account routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/auth/register", h.handleRegister)
	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/logout", h.handleLogout)
	r.Get("/api/auth/me", h.handleMe)

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAuthenticated)
		r.Put("/api/auth/update-profile", h.handleUpdateProfile)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(id.RoleInstructor))
		r.Get("/api/auth/students", h.handleListStudents)
		r.Put("/api/auth/students/{studentID}", h.handleUpdateStudent)
		r.Delete("/api/auth/students/{studentID}", h.handleDeleteStudent)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req.Normalize()
	if req.Email != "" && !govalidator.IsEmail(req.Email) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "email is not a valid address"))
		return
	}
	if !govalidator.IsByteLength(req.Password, 8, 128) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "password must be 8-128 characters"))
		return
	}

	identity, err := h.accounts.Register(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, identity)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.accounts.Login(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.cookies.SetCredential(w, result.Token)
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		User:     result.Identity,
		Redirect: guard.RoleHome(result.Identity.Role),
	})
}

type loginResponse struct {
	User     authmodels.Identity `json:"user"`
	Redirect string              `json:"redirect"`
}

// handleLogout clears the credential cookies and arms the one-shot flag that
// suppresses the "login required" notice on the next login redirect.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	if sess.Authenticated() {
		h.accounts.Logout(ctx, *sess.Identity)
	}
	h.cookies.ClearCredential(w)
	h.cookies.SetLogoutNotice(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"redirect": guard.LoginPath})
}

// handleMe reports the session state. Anonymous is a valid answer, not an
// error, so the landing page can ask without tripping the guard. The
// authenticated answer comes from the store, not the claims, so it stays
// correct even against a credential issued before a profile change.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	if !sess.Authenticated() {
		httputil.WriteJSON(w, http.StatusOK, authmodels.WhoAmI{Authenticated: false})
		return
	}

	user, err := h.accounts.Me(ctx, sess.Identity.UserID)
	if err != nil {
		// A valid credential for a deleted account: purge it and answer
		// anonymous rather than erroring.
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.cookies.ClearCredential(w)
			httputil.WriteJSON(w, http.StatusOK, authmodels.WhoAmI{Authenticated: false})
			return
		}
		httputil.WriteError(w, err)
		return
	}
	identity := identityOf(user)
	httputil.WriteJSON(w, http.StatusOK, authmodels.WhoAmI{
		Authenticated: true,
		User:          &identity,
	})
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req.Normalize()
	if req.Email != nil && *req.Email != "" && !govalidator.IsEmail(*req.Email) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "email is not a valid address"))
		return
	}

	result, err := h.accounts.UpdateProfile(ctx, sess.Identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// The fresh credential carries the updated claims, so /me and the page
	// guard see the change on the very next request.
	h.cookies.SetCredential(w, result.Credential)
	httputil.WriteJSON(w, http.StatusOK, profileOf(result.User))
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.accounts.ListStudents(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, students)
}

func (h *Handler) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	studentID, err := id.ParseUserID(chi.URLParam(r, "studentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req.Normalize()
	if req.Email != nil && *req.Email != "" && !govalidator.IsEmail(*req.Email) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "email is not a valid address"))
		return
	}

	student, err := h.accounts.UpdateStudent(ctx, studentID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, student)
}

func (h *Handler) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := id.ParseUserID(chi.URLParam(r, "studentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.accounts.DeleteStudent(r.Context(), studentID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type profileResponse struct {
	ID          id.UserID `json:"id"`
	Email       string    `json:"email"`
	Role        id.Role   `json:"role"`
	FullName    string    `json:"fullName"`
	Institution string    `json:"institution,omitempty"`
	Department  string    `json:"department,omitempty"`
}

func identityOf(u *models.User) authmodels.Identity {
	return authmodels.Identity{
		UserID:      u.ID,
		Role:        u.Role,
		Email:       u.Email,
		FullName:    u.FullName,
		Institution: u.Institution,
		Department:  u.Department,
	}
}

func profileOf(u *models.User) profileResponse {
	return profileResponse{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		FullName:    u.FullName,
		Institution: u.Institution,
		Department:  u.Department,
	}
}
