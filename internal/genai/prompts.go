package genai

import (
	"fmt"
	"strings"

	"quizforge/internal/quiz/models"
)

// GenerationPrompt asks the provider for a quiz document in the exact JSON
// shape ParseQuizDocument expects.
func GenerationPrompt(topic string, numQuestions int, questionType models.QuestionType) string {
	var typeInstruction string
	switch questionType {
	case models.QuestionMultipleChoice:
		typeInstruction = "multiple-choice questions with 4 answer options where exactly one is correct"
	case models.QuestionTrueFalse:
		typeInstruction = "true/false questions"
	default:
		typeInstruction = "short-answer questions"
	}

	return fmt.Sprintf(`Generate a quiz about %q with %d %s.
Respond ONLY with a JSON document in this exact format, no extra text:
{
  "title": "Quiz title",
  "questions": [
    {
      "question": "Question text",
      "options": ["a", "b", "c", "d"],
      "correctAnswer": "the correct answer",
      "type": %q
    }
  ]
}
The "options" field is present only for multiple_choice questions.`,
		topic, numQuestions, typeInstruction, questionType)
}

// DemoPrompt asks the provider for a small multiple-choice quiz from a
// free-form request. The demo flow has no account and nothing is persisted,
// so the response carries questions only, no title or type field.
func DemoPrompt(request string) string {
	return fmt.Sprintf(`You are a quiz generator. Generate a multiple-choice quiz based on this request:

%q

Respond ONLY with a JSON document in this exact format, no extra text:
{
  "questions": [
    {
      "question": "What is TypeScript?",
      "options": ["A framework", "A typed language", "A Java compiler"],
      "correctAnswer": "A typed language"
    }
  ]
}`, request)
}

// AnswerPair is one question/answer pair fed into grading.
type AnswerPair struct {
	Question      string
	StudentAnswer string
	CorrectAnswer string
}

// GradingPrompt asks the provider to grade a submission and report a 0-10
// score with per-question verdicts.
func GradingPrompt(pairs []AnswerPair) string {
	var b strings.Builder
	b.WriteString(`You are an assistant that grades quiz submissions.
For each question, compare the student's answer with the correct answer.
Respond with a JSON document containing a "results" array where each object has:
- "question": the question text
- "studentAnswer": the student's answer
- "correctAnswer": the correct answer
- "correct": true or false
Also compute a "score" from 0 to 10 based on the fraction of correct answers.

Here are the questions and answers:
`)
	for i, pair := range pairs {
		fmt.Fprintf(&b, "\nQuestion %d: %s\nStudent answer: %s\nCorrect answer: %s\n",
			i+1, pair.Question, pair.StudentAnswer, pair.CorrectAnswer)
	}
	b.WriteString("\nRespond ONLY with a JSON block, no extra text.\n")
	return b.String()
}
