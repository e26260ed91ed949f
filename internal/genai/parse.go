package genai

import (
	"encoding/json"
	"regexp"
	"strings"

	"quizforge/internal/quiz/models"
	dErrors "quizforge/pkg/domain-errors"
)

var fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// ExtractJSON strips an optional markdown code fence. Models often wrap
// their JSON in ```json blocks despite instructions not to.
func ExtractJSON(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// QuizDocument is the generation response schema.
type QuizDocument struct {
	Title     string            `json:"title"`
	Questions []models.Question `json:"questions"`
}

// ParseQuizDocument validates a generation response. Every question must
// carry text, a known type, and a grading key; multiple choice must carry
// options including the key.
func ParseQuizDocument(text string) (*QuizDocument, error) {
	var doc QuizDocument
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "provider returned invalid quiz JSON")
	}
	if strings.TrimSpace(doc.Title) == "" {
		return nil, dErrors.New(dErrors.CodeUnavailable, "provider quiz is missing a title")
	}
	if len(doc.Questions) == 0 {
		return nil, dErrors.New(dErrors.CodeUnavailable, "provider quiz has no questions")
	}
	for i, q := range doc.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, dErrors.Newf(dErrors.CodeUnavailable, "provider question %d is missing text", i+1)
		}
		if _, err := models.ParseQuestionType(string(q.Type)); err != nil {
			return nil, dErrors.Newf(dErrors.CodeUnavailable, "provider question %d has unknown type %q", i+1, q.Type)
		}
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return nil, dErrors.Newf(dErrors.CodeUnavailable, "provider question %d is missing a grading key", i+1)
		}
		if q.Type == models.QuestionMultipleChoice && len(q.Options) < 2 {
			return nil, dErrors.Newf(dErrors.CodeUnavailable, "provider question %d is missing answer options", i+1)
		}
	}
	return &doc, nil
}

// ParseDemoQuestions validates a demo generation response: a bare questions
// array, always multiple choice. The type field is stamped here since the
// demo prompt does not ask the provider for one.
func ParseDemoQuestions(text string) ([]models.Question, error) {
	var doc struct {
		Questions []models.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "provider returned invalid quiz JSON")
	}
	if len(doc.Questions) == 0 {
		return nil, dErrors.New(dErrors.CodeUnavailable, "provider quiz has no questions")
	}
	for i := range doc.Questions {
		q := &doc.Questions[i]
		if strings.TrimSpace(q.Question) == "" {
			return nil, dErrors.Newf(dErrors.CodeUnavailable, "provider question %d is missing text", i+1)
		}
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return nil, dErrors.Newf(dErrors.CodeUnavailable, "provider question %d is missing a grading key", i+1)
		}
		if len(q.Options) < 2 {
			return nil, dErrors.Newf(dErrors.CodeUnavailable, "provider question %d is missing answer options", i+1)
		}
		q.Type = models.QuestionMultipleChoice
	}
	return doc.Questions, nil
}

// Evaluation is the grading response schema.
type Evaluation struct {
	Results []models.QuestionResult `json:"results"`
	Score   float64                 `json:"score"`
}

// ParseEvaluation validates a grading response. The score must be 0-10 and
// results must cover the submitted answers.
func ParseEvaluation(text string, wantResults int) (*Evaluation, error) {
	var eval Evaluation
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &eval); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "provider returned invalid grading JSON")
	}
	if len(eval.Results) == 0 {
		return nil, dErrors.New(dErrors.CodeUnavailable, "provider grading has no results")
	}
	if wantResults > 0 && len(eval.Results) != wantResults {
		return nil, dErrors.Newf(dErrors.CodeUnavailable,
			"provider graded %d answers, expected %d", len(eval.Results), wantResults)
	}
	if eval.Score < 0 || eval.Score > 10 {
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "provider score %v outside 0-10", eval.Score)
	}
	return &eval, nil
}
