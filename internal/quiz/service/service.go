// Package service orchestrates the quiz lifecycle: AI-backed draft
// generation, publication, student attempts, and aggregates.
package service

import (
	"context"
	"errors"
	"log/slog"

	"quizforge/internal/genai"
	"quizforge/internal/platform/audit"
	"quizforge/internal/platform/metrics"
	"quizforge/internal/quiz/models"
	id "quizforge/pkg/domain"
	dErrors "quizforge/pkg/domain-errors"
	"quizforge/pkg/platform/sentinel"
	"quizforge/pkg/requestcontext"
)

// QuizStore is quiz persistence stated from the consumer side.
type QuizStore interface {
	Create(ctx context.Context, q *models.Quiz) error
	FindByID(ctx context.Context, quizID id.QuizID) (*models.Quiz, error)
	Update(ctx context.Context, q *models.Quiz) error
	Delete(ctx context.Context, quizID id.QuizID) error
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Quiz, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Quiz, error)
}

// AttemptStore is attempt persistence stated from the consumer side.
type AttemptStore interface {
	Create(ctx context.Context, a *models.Attempt) error
	ListByStudent(ctx context.Context, studentID id.UserID) ([]*models.Attempt, error)
}

// ContentGenerator is the AI provider boundary.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// AuditPublisher records quiz lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	quizzes   QuizStore
	attempts  AttemptStore
	generator ContentGenerator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     AuditPublisher
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

func New(quizzes QuizStore, attempts AttemptStore, generator ContentGenerator, opts ...Option) *Service {
	s := &Service{
		quizzes:   quizzes,
		attempts:  attempts,
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateDraft asks the AI provider for a quiz on the given topic and
// stores the validated result as a draft owned by the caller.
func (s *Service) GenerateDraft(ctx context.Context, ownerID id.UserID, req models.GenerateRequest) (*models.Quiz, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	questionType, err := models.ParseQuestionType(req.QuestionType)
	if err != nil {
		return nil, err
	}

	prompt := genai.GenerationPrompt(req.Topic, req.NumQuestions, questionType)
	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}
	doc, err := genai.ParseQuizDocument(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "provider returned unusable quiz document",
			"topic", req.Topic,
			"error", err,
		)
		return nil, err
	}

	now := requestcontext.Now(ctx)
	quiz := &models.Quiz{
		ID:        id.NewQuizID(),
		OwnerID:   ownerID,
		Title:     doc.Title,
		Status:    models.StatusDraft,
		Questions: doc.Questions,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store quiz")
	}

	if s.metrics != nil {
		s.metrics.QuizzesGenerated.Inc()
	}
	s.emit(ctx, audit.Event{
		UserID: ownerID,
		Action: audit.ActionQuizGenerated,
	})
	s.logger.InfoContext(ctx, "quiz draft generated",
		"quiz_id", quiz.ID,
		"owner_id", ownerID,
		"questions", len(quiz.Questions),
		"request_id", requestcontext.RequestID(ctx),
	)
	return quiz, nil
}

// GenerateDemo produces an ephemeral quiz for the public demo page. No
// account is involved and nothing is persisted; the grading keys ride along
// in the response because the demo is graded client-side.
func (s *Service) GenerateDemo(ctx context.Context, req models.DemoRequest) ([]models.Question, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	raw, err := s.generator.GenerateContent(ctx, genai.DemoPrompt(req.Prompt))
	if err != nil {
		return nil, err
	}
	questions, err := genai.ParseDemoQuestions(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "provider returned unusable demo quiz",
			"error", err,
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "demo quiz generated",
		"questions", len(questions),
		"request_id", requestcontext.RequestID(ctx),
	)
	return questions, nil
}

// UpdateDraft edits an unpublished quiz. Only the owner may edit, and a
// published quiz is immutable.
func (s *Service) UpdateDraft(ctx context.Context, ownerID id.UserID, quizID id.QuizID, req models.UpdateDraftRequest) (*models.Quiz, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	quiz, err := s.ownedQuiz(ctx, ownerID, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status == models.StatusPublished {
		return nil, dErrors.New(dErrors.CodeValidation, "published quizzes cannot be edited")
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.Questions != nil {
		quiz.Questions = *req.Questions
	}
	quiz.UpdatedAt = requestcontext.Now(ctx)

	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update quiz")
	}
	return quiz, nil
}

// Publish moves a draft to published. Publishing an already-published quiz
// is a validation error, not a no-op.
func (s *Service) Publish(ctx context.Context, ownerID id.UserID, quizID id.QuizID, req models.PublishRequest) (*models.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, ownerID, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status == models.StatusPublished {
		return nil, dErrors.New(dErrors.CodeValidation, "quiz is already published")
	}

	if req.Title != nil && *req.Title != "" {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	quiz.Status = models.StatusPublished
	quiz.UpdatedAt = requestcontext.Now(ctx)

	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish quiz")
	}

	s.emit(ctx, audit.Event{
		UserID: ownerID,
		Action: audit.ActionQuizPublished,
	})
	s.logger.InfoContext(ctx, "quiz published",
		"quiz_id", quiz.ID,
		"owner_id", ownerID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return quiz, nil
}

// Delete removes a quiz. Owner only.
func (s *Service) Delete(ctx context.Context, ownerID id.UserID, quizID id.QuizID) error {
	if _, err := s.ownedQuiz(ctx, ownerID, quizID); err != nil {
		return err
	}
	if err := s.quizzes.Delete(ctx, quizID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete quiz")
	}
	return nil
}

// ListCreated returns the instructor's own quizzes, newest first.
func (s *Service) ListCreated(ctx context.Context, ownerID id.UserID) ([]*models.Quiz, error) {
	quizzes, err := s.quizzes.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list quizzes")
	}
	return quizzes, nil
}

// ListAvailable returns published quizzes, newest first, answer keys
// stripped.
func (s *Service) ListAvailable(ctx context.Context) ([]*models.Quiz, error) {
	quizzes, err := s.quizzes.ListByStatus(ctx, models.StatusPublished)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list quizzes")
	}
	out := make([]*models.Quiz, len(quizzes))
	for i, q := range quizzes {
		out[i] = q.StripAnswerKeys()
	}
	return out, nil
}

// Get returns one quiz. The owner sees grading keys; everyone else gets the
// stripped view, and non-owners can only see published quizzes.
func (s *Service) Get(ctx context.Context, viewerID id.UserID, quizID id.QuizID) (*models.Quiz, error) {
	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.OwnerID == viewerID {
		return quiz, nil
	}
	if quiz.Status != models.StatusPublished {
		return nil, dErrors.New(dErrors.CodeNotFound, "quiz not found")
	}
	return quiz.StripAnswerKeys(), nil
}

// SubmitAttempt grades a student's answers through the AI provider and
// persists the result. Answers are positional against the quiz's questions.
func (s *Service) SubmitAttempt(ctx context.Context, studentID id.UserID, quizID id.QuizID, req models.SubmitAttemptRequest) (*models.Attempt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != models.StatusPublished {
		return nil, dErrors.New(dErrors.CodeValidation, "quiz is not published")
	}
	if len(req.Answers) != len(quiz.Questions) {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"expected %d answers, got %d", len(quiz.Questions), len(req.Answers))
	}

	pairs := make([]genai.AnswerPair, len(quiz.Questions))
	for i, q := range quiz.Questions {
		pairs[i] = genai.AnswerPair{
			Question:      q.Question,
			StudentAnswer: req.Answers[i],
			CorrectAnswer: q.CorrectAnswer,
		}
	}
	raw, err := s.generator.GenerateContent(ctx, genai.GradingPrompt(pairs))
	if err != nil {
		return nil, err
	}
	eval, err := genai.ParseEvaluation(raw, len(pairs))
	if err != nil {
		s.logger.WarnContext(ctx, "provider returned unusable grading document",
			"quiz_id", quizID,
			"error", err,
		)
		return nil, err
	}

	attempt := &models.Attempt{
		ID:          id.NewAttemptID(),
		QuizID:      quizID,
		StudentID:   studentID,
		Score:       eval.Score,
		Results:     eval.Results,
		SubmittedAt: requestcontext.Now(ctx),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store attempt")
	}

	if s.metrics != nil {
		s.metrics.AttemptsGraded.Inc()
	}
	s.emit(ctx, audit.Event{
		UserID: studentID,
		Action: audit.ActionAttemptGraded,
	})
	s.logger.InfoContext(ctx, "attempt graded",
		"quiz_id", quizID,
		"student_id", studentID,
		"score", attempt.Score,
		"request_id", requestcontext.RequestID(ctx),
	)
	return attempt, nil
}

// QuizStatuses annotates every published quiz with whether the student has
// completed it.
func (s *Service) QuizStatuses(ctx context.Context, studentID id.UserID) ([]models.QuizStatus, error) {
	published, err := s.quizzes.ListByStatus(ctx, models.StatusPublished)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list quizzes")
	}
	attempts, err := s.attempts.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attempts")
	}

	completed := make(map[id.QuizID]bool, len(attempts))
	for _, a := range attempts {
		completed[a.QuizID] = true
	}

	out := make([]models.QuizStatus, 0, len(published))
	for _, q := range published {
		state := "available"
		if completed[q.ID] {
			state = "completed"
		}
		out = append(out, models.QuizStatus{
			Quiz:      q.StripAnswerKeys(),
			Completed: completed[q.ID],
			State:     state,
		})
	}
	return out, nil
}

// AverageScore returns the student's mean score and attempt count. Average
// is nil when the student has no attempts.
func (s *Service) AverageScore(ctx context.Context, studentID id.UserID) (*models.ScoreSummary, error) {
	attempts, err := s.attempts.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attempts")
	}
	summary := &models.ScoreSummary{AttemptsCount: len(attempts)}
	if len(attempts) == 0 {
		return summary, nil
	}
	var total float64
	for _, a := range attempts {
		total += a.Score
	}
	average := total / float64(len(attempts))
	summary.Average = &average
	return summary, nil
}

func (s *Service) findQuiz(ctx context.Context, quizID id.QuizID) (*models.Quiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "quiz not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load quiz")
	}
	return quiz, nil
}

// ownedQuiz loads a quiz and enforces ownership. A quiz owned by someone
// else reads as forbidden, not as absent, so instructors get an honest
// signal on their own mistakes.
func (s *Service) ownedQuiz(ctx context.Context, ownerID id.UserID, quizID id.QuizID) (*models.Quiz, error) {
	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.OwnerID != ownerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "quiz belongs to another instructor")
	}
	return quiz, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	s.audit.Emit(ctx, event)
}
