// Package audit records security-relevant application events. Events flow
// through a publisher into a store; production uses the Kafka sink, tests and
// local runs use the in-memory store.
package audit

import (
	"context"
	"time"

	id "quizforge/pkg/domain"
)

// Action names follow subject.verb and are stable: downstream consumers key
// on them.
type Action string

const (
	ActionUserRegistered  Action = "user.registered"
	ActionUserLogin       Action = "user.login"
	ActionUserLoginDenied Action = "user.login_denied"
	ActionUserLogout      Action = "user.logout"
	ActionStudentUpdated  Action = "student.updated"
	ActionStudentDeleted  Action = "student.deleted"
	ActionQuizGenerated   Action = "quiz.generated"
	ActionQuizPublished   Action = "quiz.published"
	ActionAttemptGraded   Action = "attempt.graded"
)

// Event is one audit record. UserID may be nil-valued for events that fire
// before an account exists (denied logins for unknown emails).
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    id.UserID `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	Action    Action    `json:"action"`
	Device    string    `json:"device,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Store is the sink behind the publisher.
type Store interface {
	Append(ctx context.Context, event Event) error
}
