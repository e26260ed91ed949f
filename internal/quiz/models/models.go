// Package models defines quiz lifecycle types: quizzes with embedded
// questions, graded attempts, and the request shapes the service accepts.
package models

import (
	"strings"
	"time"

	id "quizforge/pkg/domain"
	dErrors "quizforge/pkg/domain-errors"
)

// Status is the quiz lifecycle state. Drafts are visible only to their
// owner; published quizzes are visible to students.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// QuestionType constrains what the AI provider is asked to generate.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

func ParseQuestionType(raw string) (QuestionType, error) {
	switch QuestionType(strings.TrimSpace(raw)) {
	case QuestionMultipleChoice:
		return QuestionMultipleChoice, nil
	case QuestionTrueFalse:
		return QuestionTrueFalse, nil
	case QuestionShortAnswer:
		return QuestionShortAnswer, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation,
			"questionType must be one of multiple_choice, true_false, short_answer")
	}
}

// Question is one quiz item. Options is populated for multiple choice only.
// CorrectAnswer is the grading key and is stripped from student views.
type Question struct {
	Question      string       `json:"question"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
}

// Quiz is an instructor-owned question set.
type Quiz struct {
	ID          id.QuizID  `json:"id"`
	OwnerID     id.UserID  `json:"instructorId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// StripAnswerKeys returns a copy safe to show a student: same questions,
// empty grading keys.
func (q *Quiz) StripAnswerKeys() *Quiz {
	out := *q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = ""
		out.Questions[i] = question
	}
	return &out
}

// QuestionResult is the per-question verdict from grading.
type QuestionResult struct {
	Question      string `json:"question"`
	StudentAnswer string `json:"studentAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
}

// Attempt is one graded submission. Score is 0-10.
type Attempt struct {
	ID          id.AttemptID     `json:"id"`
	QuizID      id.QuizID        `json:"quizId"`
	StudentID   id.UserID        `json:"studentId"`
	Score       float64          `json:"score"`
	Results     []QuestionResult `json:"results"`
	SubmittedAt time.Time        `json:"submittedAt"`
}

// QuizStatus annotates a published quiz with the student's completion state.
type QuizStatus struct {
	Quiz      *Quiz  `json:"quiz"`
	Completed bool   `json:"completed"`
	State     string `json:"state"` // "completed" | "available"
}

// ScoreSummary is the student's aggregate over all graded attempts. Average
// is nil when no attempt exists.
type ScoreSummary struct {
	Average       *float64 `json:"average"`
	AttemptsCount int      `json:"attemptsCount"`
}

// GenerateRequest asks the AI provider for a fresh draft.
type GenerateRequest struct {
	Topic        string `json:"topic"`
	NumQuestions int    `json:"numQuestions"`
	QuestionType string `json:"questionType"`
}

const maxGeneratedQuestions = 20

func (r *GenerateRequest) Normalize() {
	r.Topic = strings.TrimSpace(r.Topic)
}

func (r *GenerateRequest) Validate() error {
	if r.Topic == "" {
		return dErrors.New(dErrors.CodeValidation, "topic is required")
	}
	if r.NumQuestions < 1 || r.NumQuestions > maxGeneratedQuestions {
		return dErrors.New(dErrors.CodeValidation, "numQuestions must be between 1 and 20")
	}
	if _, err := ParseQuestionType(r.QuestionType); err != nil {
		return err
	}
	return nil
}

// DemoRequest is the public demo generation input: a free-form request, no
// account, nothing persisted.
type DemoRequest struct {
	Prompt string `json:"prompt"`
}

func (r *DemoRequest) Normalize() {
	r.Prompt = strings.TrimSpace(r.Prompt)
}

func (r *DemoRequest) Validate() error {
	if r.Prompt == "" {
		return dErrors.New(dErrors.CodeValidation, "prompt is required")
	}
	return nil
}

// UpdateDraftRequest replaces the mutable parts of a draft. Nil fields mean
// "leave unchanged".
type UpdateDraftRequest struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Questions   *[]Question `json:"questions,omitempty"`
}

func (r *UpdateDraftRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title cannot be empty")
	}
	if r.Questions != nil {
		if len(*r.Questions) == 0 {
			return dErrors.New(dErrors.CodeValidation, "questions cannot be empty")
		}
		for _, q := range *r.Questions {
			if strings.TrimSpace(q.Question) == "" {
				return dErrors.New(dErrors.CodeValidation, "question text cannot be empty")
			}
			if _, err := ParseQuestionType(string(q.Type)); err != nil {
				return err
			}
		}
	}
	return nil
}

// PublishRequest optionally retitles the quiz at publish time.
type PublishRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// SubmitAttemptRequest carries the student's answers in question order.
type SubmitAttemptRequest struct {
	Answers []string `json:"answers"`
}

func (r *SubmitAttemptRequest) Validate() error {
	if len(r.Answers) == 0 {
		return dErrors.New(dErrors.CodeValidation, "answers are required")
	}
	return nil
}
