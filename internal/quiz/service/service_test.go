package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quizforge/internal/platform/audit"
	"quizforge/internal/quiz/models"
	attemptstore "quizforge/internal/quiz/store/attempt"
	quizstore "quizforge/internal/quiz/store/quiz"
	id "quizforge/pkg/domain"
	dErrors "quizforge/pkg/domain-errors"
	"quizforge/pkg/requestcontext"
)

// fakeGenerator replays canned responses in order and records prompts.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (g *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", dErrors.New(dErrors.CodeUnavailable, "no canned response")
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, event audit.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) actions() []audit.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]audit.Action, len(p.events))
	for i, e := range p.events {
		out[i] = e.Action
	}
	return out
}

const generatedQuizJSON = `{
	"title": "Photosynthesis Basics",
	"questions": [
		{"question": "What gas do plants absorb?", "type": "multiple_choice",
		 "options": ["Oxygen", "Carbon dioxide", "Nitrogen"], "correctAnswer": "Carbon dioxide"},
		{"question": "Photosynthesis requires sunlight.", "type": "true_false", "correctAnswer": "true"}
	]
}`

const gradedAttemptJSON = "```json\n" + `{
	"results": [
		{"question": "What gas do plants absorb?", "studentAnswer": "Carbon dioxide",
		 "correctAnswer": "Carbon dioxide", "correct": true},
		{"question": "Photosynthesis requires sunlight.", "studentAnswer": "false",
		 "correctAnswer": "true", "correct": false}
	],
	"score": 5
}` + "\n```"

type QuizServiceSuite struct {
	suite.Suite
	quizzes   *quizstore.InMemoryStore
	attempts  *attemptstore.InMemoryStore
	generator *fakeGenerator
	audit     *recordingPublisher
	service   *Service
	ctx       context.Context
	now       time.Time

	instructor id.UserID
	student    id.UserID
}

func (s *QuizServiceSuite) SetupTest() {
	s.quizzes = quizstore.NewInMemory()
	s.attempts = attemptstore.NewInMemory()
	s.generator = &fakeGenerator{}
	s.audit = &recordingPublisher{}
	s.service = New(s.quizzes, s.attempts, s.generator, WithAuditPublisher(s.audit))
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.instructor = id.NewUserID()
	s.student = id.NewUserID()
}

func TestQuizServiceSuite(t *testing.T) {
	suite.Run(t, new(QuizServiceSuite))
}

func (s *QuizServiceSuite) generateDraft() *models.Quiz {
	s.T().Helper()
	s.generator.responses = append(s.generator.responses, generatedQuizJSON)
	quiz, err := s.service.GenerateDraft(s.ctx, s.instructor, models.GenerateRequest{
		Topic:        "photosynthesis",
		NumQuestions: 2,
		QuestionType: "multiple_choice",
	})
	s.Require().NoError(err)
	return quiz
}

func (s *QuizServiceSuite) publish(quiz *models.Quiz) *models.Quiz {
	s.T().Helper()
	published, err := s.service.Publish(s.ctx, s.instructor, quiz.ID, models.PublishRequest{})
	s.Require().NoError(err)
	return published
}

func (s *QuizServiceSuite) TestGenerateDraft() {
	quiz := s.generateDraft()

	s.Equal("Photosynthesis Basics", quiz.Title)
	s.Equal(models.StatusDraft, quiz.Status)
	s.Equal(s.instructor, quiz.OwnerID)
	s.Len(quiz.Questions, 2)
	s.Equal(s.now, quiz.CreatedAt)
	s.Contains(s.generator.prompts[0], "photosynthesis")

	stored, err := s.quizzes.FindByID(s.ctx, quiz.ID)
	s.Require().NoError(err)
	s.Equal(quiz.Title, stored.Title)
	s.Equal([]audit.Action{audit.ActionQuizGenerated}, s.audit.actions())
}

func (s *QuizServiceSuite) TestGenerateDraftValidation() {
	cases := []struct {
		name string
		req  models.GenerateRequest
	}{
		{"missing topic", models.GenerateRequest{NumQuestions: 5, QuestionType: "true_false"}},
		{"zero questions", models.GenerateRequest{Topic: "go", NumQuestions: 0, QuestionType: "true_false"}},
		{"too many questions", models.GenerateRequest{Topic: "go", NumQuestions: 21, QuestionType: "true_false"}},
		{"unknown type", models.GenerateRequest{Topic: "go", NumQuestions: 5, QuestionType: "essay"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.GenerateDraft(s.ctx, s.instructor, tc.req)
			s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.Empty(s.generator.prompts)
		})
	}
}

func (s *QuizServiceSuite) TestGenerateDraftUnusableResponse() {
	s.generator.responses = []string{`{"title": "Nope"}`}
	_, err := s.service.GenerateDraft(s.ctx, s.instructor, models.GenerateRequest{
		Topic:        "go",
		NumQuestions: 2,
		QuestionType: "short_answer",
	})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Empty(s.audit.actions())
}

func (s *QuizServiceSuite) TestGenerateDemo() {
	s.generator.responses = []string{`{
		"questions": [
			{
				"question": "Which planet is closest to the sun?",
				"options": ["Mercury", "Venus", "Earth", "Mars"],
				"correctAnswer": "Mercury"
			}
		]
	}`}

	questions, err := s.service.GenerateDemo(s.ctx, models.DemoRequest{Prompt: "the solar system"})
	s.Require().NoError(err)
	s.Require().Len(questions, 1)
	s.Equal(models.QuestionMultipleChoice, questions[0].Type)
	s.Equal("Mercury", questions[0].CorrectAnswer, "grading key stays in for client-side checking")
	s.Contains(s.generator.prompts[0], "the solar system")
	s.Empty(s.audit.actions(), "demo runs leave no audit trail")
}

func (s *QuizServiceSuite) TestGenerateDemoValidation() {
	_, err := s.service.GenerateDemo(s.ctx, models.DemoRequest{Prompt: "   "})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Empty(s.generator.prompts)
}

func (s *QuizServiceSuite) TestGenerateDemoUnusableResponse() {
	s.generator.responses = []string{"the model apologizes and refuses"}
	_, err := s.service.GenerateDemo(s.ctx, models.DemoRequest{Prompt: "anything"})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *QuizServiceSuite) TestUpdateDraft() {
	quiz := s.generateDraft()

	title := "Plant Biology"
	updated, err := s.service.UpdateDraft(s.ctx, s.instructor, quiz.ID, models.UpdateDraftRequest{
		Title: &title,
	})
	s.Require().NoError(err)
	s.Equal("Plant Biology", updated.Title)
	s.Len(updated.Questions, 2, "questions unchanged when omitted")
}

func (s *QuizServiceSuite) TestUpdateDraftPublishedIsImmutable() {
	quiz := s.publish(s.generateDraft())

	title := "Too Late"
	_, err := s.service.UpdateDraft(s.ctx, s.instructor, quiz.ID, models.UpdateDraftRequest{Title: &title})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *QuizServiceSuite) TestUpdateDraftOwnership() {
	quiz := s.generateDraft()

	title := "Hijacked"
	_, err := s.service.UpdateDraft(s.ctx, id.NewUserID(), quiz.ID, models.UpdateDraftRequest{Title: &title})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *QuizServiceSuite) TestPublish() {
	quiz := s.generateDraft()

	title := "Final Title"
	published, err := s.service.Publish(s.ctx, s.instructor, quiz.ID, models.PublishRequest{Title: &title})
	s.Require().NoError(err)
	s.Equal(models.StatusPublished, published.Status)
	s.Equal("Final Title", published.Title)
	s.Equal([]audit.Action{audit.ActionQuizGenerated, audit.ActionQuizPublished}, s.audit.actions())
}

func (s *QuizServiceSuite) TestPublishTwice() {
	quiz := s.publish(s.generateDraft())

	_, err := s.service.Publish(s.ctx, s.instructor, quiz.ID, models.PublishRequest{})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "already published")
}

func (s *QuizServiceSuite) TestDelete() {
	quiz := s.generateDraft()

	s.Require().NoError(s.service.Delete(s.ctx, s.instructor, quiz.ID))
	_, err := s.service.Get(s.ctx, s.instructor, quiz.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.Delete(s.ctx, s.instructor, quiz.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *QuizServiceSuite) TestGetVisibility() {
	draft := s.generateDraft()

	s.Run("owner sees grading keys", func() {
		got, err := s.service.Get(s.ctx, s.instructor, draft.ID)
		s.Require().NoError(err)
		s.Equal("Carbon dioxide", got.Questions[0].CorrectAnswer)
	})

	s.Run("draft is invisible to others", func() {
		_, err := s.service.Get(s.ctx, s.student, draft.ID)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.publish(draft)

	s.Run("published quiz is stripped for others", func() {
		got, err := s.service.Get(s.ctx, s.student, draft.ID)
		s.Require().NoError(err)
		s.Empty(got.Questions[0].CorrectAnswer)
		s.Equal("What gas do plants absorb?", got.Questions[0].Question)
	})
}

func (s *QuizServiceSuite) TestListAvailableStripsAnswers() {
	s.publish(s.generateDraft())
	s.generateDraft() // stays draft

	available, err := s.service.ListAvailable(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(available, 1)
	for _, q := range available[0].Questions {
		s.Empty(q.CorrectAnswer)
	}
}

func (s *QuizServiceSuite) TestSubmitAttempt() {
	quiz := s.publish(s.generateDraft())

	s.generator.responses = append(s.generator.responses, gradedAttemptJSON)
	attempt, err := s.service.SubmitAttempt(s.ctx, s.student, quiz.ID, models.SubmitAttemptRequest{
		Answers: []string{"Carbon dioxide", "false"},
	})
	s.Require().NoError(err)
	s.Equal(5.0, attempt.Score)
	s.Len(attempt.Results, 2)
	s.Equal(s.student, attempt.StudentID)
	s.Equal(s.now, attempt.SubmittedAt)

	gradingPrompt := s.generator.prompts[len(s.generator.prompts)-1]
	s.Contains(gradingPrompt, "Carbon dioxide")
	s.Contains(s.audit.actions(), audit.ActionAttemptGraded)

	stored, err := s.attempts.ListByStudent(s.ctx, s.student)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(attempt.ID, stored[0].ID)
}

func (s *QuizServiceSuite) TestSubmitAttemptAnswerCountMismatch() {
	quiz := s.publish(s.generateDraft())

	_, err := s.service.SubmitAttempt(s.ctx, s.student, quiz.ID, models.SubmitAttemptRequest{
		Answers: []string{"only one"},
	})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "expected 2 answers")
}

func (s *QuizServiceSuite) TestSubmitAttemptUnpublished() {
	quiz := s.generateDraft()

	_, err := s.service.SubmitAttempt(s.ctx, s.student, quiz.ID, models.SubmitAttemptRequest{
		Answers: []string{"a", "b"},
	})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *QuizServiceSuite) TestQuizStatuses() {
	done := s.publish(s.generateDraft())
	pending := s.publish(s.generateDraft())

	s.generator.responses = append(s.generator.responses, gradedAttemptJSON)
	_, err := s.service.SubmitAttempt(s.ctx, s.student, done.ID, models.SubmitAttemptRequest{
		Answers: []string{"Carbon dioxide", "false"},
	})
	s.Require().NoError(err)

	statuses, err := s.service.QuizStatuses(s.ctx, s.student)
	s.Require().NoError(err)
	s.Require().Len(statuses, 2)

	byID := make(map[id.QuizID]models.QuizStatus, len(statuses))
	for _, st := range statuses {
		byID[st.Quiz.ID] = st
		for _, q := range st.Quiz.Questions {
			s.Empty(q.CorrectAnswer)
		}
	}
	s.True(byID[done.ID].Completed)
	s.Equal("completed", byID[done.ID].State)
	s.False(byID[pending.ID].Completed)
	s.Equal("available", byID[pending.ID].State)
}

func (s *QuizServiceSuite) TestAverageScore() {
	s.Run("no attempts", func() {
		summary, err := s.service.AverageScore(s.ctx, s.student)
		s.Require().NoError(err)
		s.Nil(summary.Average)
		s.Zero(summary.AttemptsCount)
	})

	s.Run("averages graded attempts", func() {
		for _, score := range []float64{4, 8} {
			s.Require().NoError(s.attempts.Create(s.ctx, &models.Attempt{
				ID:        id.NewAttemptID(),
				QuizID:    id.NewQuizID(),
				StudentID: s.student,
				Score:     score,
				Results: []models.QuestionResult{
					{Question: "q", StudentAnswer: "a", CorrectAnswer: "a", Correct: true},
				},
				SubmittedAt: s.now,
			}))
		}

		summary, err := s.service.AverageScore(s.ctx, s.student)
		s.Require().NoError(err)
		s.Require().NotNil(summary.Average)
		s.InDelta(6.0, *summary.Average, 1e-9)
		s.Equal(2, summary.AttemptsCount)
	})
}
