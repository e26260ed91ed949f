// Package service orchestrates account lifecycle: registration, credential
// checks, and profile management. Handlers stay thin; stores stay dumb.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quizforge/internal/account/models"
	"quizforge/internal/account/password"
	"quizforge/internal/account/throttle"
	"quizforge/internal/auth/device"
	authmodels "quizforge/internal/auth/models"
	"quizforge/internal/auth/token"
	"quizforge/internal/platform/audit"
	"quizforge/internal/platform/metrics"
	id "quizforge/pkg/domain"
	dErrors "quizforge/pkg/domain-errors"
	"quizforge/pkg/platform/sentinel"
	"quizforge/pkg/requestcontext"
)

// UserStore is the persistence the service needs, stated from the consumer
// side so memory and postgres implementations stay interchangeable.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	ListByRole(ctx context.Context, role id.Role) ([]*models.User, error)
}

// AuditPublisher records security-relevant account events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	users    UserStore
	codec    *token.Codec
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    AuditPublisher
	throttle *throttle.Throttle
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// WithThrottle enables the failed-login lockout. Off by default so tests can
// exercise credential checks without a counter store.
func WithThrottle(t *throttle.Throttle) Option {
	return func(s *Service) {
		s.throttle = t
	}
}

func New(users UserStore, codec *token.Codec, opts ...Option) *Service {
	s := &Service{
		users:  users,
		codec:  codec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and returns the identity the caller can log in
// as. The email is the uniqueness key; a taken email surfaces as a conflict.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*authmodels.Identity, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	birthDate, err := parseBirthDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	user := &models.User{
		ID:           id.NewUserID(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		FullName:     req.FullName,
		BirthDate:    birthDate,
		Institution:  req.Institution,
		Department:   req.Department,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	if s.metrics != nil {
		s.metrics.Registrations.Inc()
	}
	s.emit(ctx, audit.Event{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		Action: audit.ActionUserRegistered,
	})
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"role", user.Role,
		"request_id", requestcontext.RequestID(ctx),
	)
	identity := identityOf(user)
	return &identity, nil
}

// Login checks credentials and issues a signed session credential. Unknown
// emails and wrong passwords produce the same error so callers cannot learn
// which addresses hold accounts.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*authmodels.LoginResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if s.throttle != nil && !s.throttle.Allow(ctx, req.Email) {
		if s.metrics != nil {
			s.metrics.LoginsThrottled.Inc()
		}
		s.emit(ctx, audit.Event{
			Email:  req.Email,
			Action: audit.ActionUserLoginDenied,
			Device: device.ParseUserAgent(requestcontext.UserAgent(ctx)),
		})
		return nil, dErrors.New(dErrors.CodeUnavailable, "too many failed attempts, try again later")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.denyLogin(ctx, req.Email)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	ok, err := password.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !ok {
		return nil, s.denyLogin(ctx, req.Email)
	}

	if s.throttle != nil {
		s.throttle.OnSuccess(ctx, req.Email)
	}

	now := requestcontext.Now(ctx)
	lastLogin := now
	user.LastLogin = &lastLogin
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		// A missed last-login stamp does not block the session.
		s.logger.WarnContext(ctx, "failed to record last login",
			"user_id", user.ID,
			"error", err,
		)
	}

	credential, expiresAt, err := s.codec.Issue(authmodels.Claims{
		UserID:      user.ID,
		Role:        user.Role,
		Email:       user.Email,
		FullName:    user.FullName,
		Institution: user.Institution,
		Department:  user.Department,
	}, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue credential")
	}

	if s.metrics != nil {
		s.metrics.Logins.Inc()
	}
	s.emit(ctx, audit.Event{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		Action: audit.ActionUserLogin,
		Device: device.ParseUserAgent(requestcontext.UserAgent(ctx)),
	})
	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID,
		"role", user.Role,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &authmodels.LoginResult{
		Identity:  identityOf(user),
		Token:     credential,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) denyLogin(ctx context.Context, email string) error {
	if s.throttle != nil {
		if err := s.throttle.OnFailure(ctx, email); err != nil {
			s.logger.WarnContext(ctx, "failed to record login failure", "error", err)
		}
	}
	s.emit(ctx, audit.Event{
		Email:  email,
		Action: audit.ActionUserLoginDenied,
		Device: device.ParseUserAgent(requestcontext.UserAgent(ctx)),
	})
	return dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
}

// Logout only records the event; credential teardown is cookie-side and the
// token itself stays valid until expiry.
func (s *Service) Logout(ctx context.Context, identity authmodels.Identity) {
	s.emit(ctx, audit.Event{
		UserID: identity.UserID,
		Email:  identity.Email,
		Role:   string(identity.Role),
		Action: audit.ActionUserLogout,
	})
	s.logger.InfoContext(ctx, "user logged out",
		"user_id", identity.UserID,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// Me loads the caller's full account record.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// UpdateProfile applies the provided fields and reissues the credential so
// the client's claims reflect the change immediately; without the reissue a
// renamed user would read their old name out of the token until expiry.
// Changing the email re-keys uniqueness and can conflict.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, req models.UpdateProfileRequest) (*models.ProfileUpdate, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Institution != nil {
		user.Institution = *req.Institution
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	user.UpdatedAt = requestcontext.Now(ctx)

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}

	credential, expiresAt, err := s.codec.Issue(authmodels.Claims{
		UserID:      user.ID,
		Role:        user.Role,
		Email:       user.Email,
		FullName:    user.FullName,
		Institution: user.Institution,
		Department:  user.Department,
	}, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reissue credential")
	}
	return &models.ProfileUpdate{
		User:       user,
		Credential: credential,
		ExpiresAt:  expiresAt,
	}, nil
}

// UpdateStudent edits a student record on behalf of an instructor. Accounts
// that are not students read as absent, matching the roster the instructor
// can see.
func (s *Service) UpdateStudent(ctx context.Context, studentID id.UserID, req models.UpdateStudentRequest) (*models.StudentSummary, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	user, err := s.findStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Institution != nil {
		user.Institution = *req.Institution
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.BirthDate != nil {
		birthDate, err := parseBirthDate(req.BirthDate)
		if err != nil {
			return nil, err
		}
		user.BirthDate = birthDate
	}
	user.UpdatedAt = requestcontext.Now(ctx)

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update student")
	}

	s.emit(ctx, audit.Event{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		Action: audit.ActionStudentUpdated,
	})
	s.logger.InfoContext(ctx, "student record updated",
		"student_id", user.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	summary := summaryOf(user)
	return &summary, nil
}

// DeleteStudent removes a student account. Quizzes and attempts referencing
// the account go with it through the storage cascade.
func (s *Service) DeleteStudent(ctx context.Context, studentID id.UserID) error {
	user, err := s.findStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete student")
	}

	s.emit(ctx, audit.Event{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		Action: audit.ActionStudentDeleted,
	})
	s.logger.InfoContext(ctx, "student account deleted",
		"student_id", user.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// findStudent loads a user and hides non-student accounts behind not-found,
// so the roster surface cannot confirm which IDs belong to instructors.
func (s *Service) findStudent(ctx context.Context, studentID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if user.Role != id.RoleStudent {
		return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
	}
	return user, nil
}

// ListStudents returns the student roster for instructor views, sorted by
// name.
func (s *Service) ListStudents(ctx context.Context) ([]models.StudentSummary, error) {
	students, err := s.users.ListByRole(ctx, id.RoleStudent)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list students")
	}
	summaries := make([]models.StudentSummary, 0, len(students))
	for _, u := range students {
		summaries = append(summaries, summaryOf(u))
	}
	return summaries, nil
}

func summaryOf(u *models.User) models.StudentSummary {
	return models.StudentSummary{
		ID:          u.ID,
		Role:        u.Role,
		FullName:    u.FullName,
		Email:       u.Email,
		Institution: u.Institution,
		Department:  u.Department,
		BirthDate:   u.BirthDate,
		LastLogin:   u.LastLogin,
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	s.audit.Emit(ctx, event)
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

func parseBirthDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "birthDate must be YYYY-MM-DD")
	}
	return &t, nil
}
