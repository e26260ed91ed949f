// Package domain holds typed identifiers and role primitives shared across
// services. Typed IDs prevent cross-type assignment at compile time; parsing
// enforces validity at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "quizforge/pkg/domain-errors"
)

type (
	// UserID identifies a registered account.
	UserID uuid.UUID
	// QuizID identifies a quiz, draft or published.
	QuizID uuid.UUID
	// AttemptID identifies a graded quiz attempt.
	AttemptID uuid.UUID
)

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id QuizID) String() string    { return uuid.UUID(id).String() }
func (id AttemptID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id QuizID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Defined types over uuid.UUID do not inherit its text marshaling, so each
// ID spells it out; without these, JSON would encode IDs as byte arrays.

func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id QuizID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id AttemptID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *QuizID) UnmarshalText(text []byte) error {
	parsed, err := ParseQuizID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AttemptID) UnmarshalText(text []byte) error {
	parsed, err := ParseAttemptID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewQuizID returns a fresh random quiz ID.
func NewQuizID() QuizID { return QuizID(uuid.New()) }

// NewAttemptID returns a fresh random attempt ID.
func NewAttemptID() AttemptID { return AttemptID(uuid.New()) }

// ParseUserID validates and returns a UserID.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseQuizID validates and returns a QuizID.
func ParseQuizID(s string) (QuizID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return QuizID{}, err
	}
	return QuizID(u), nil
}

// ParseAttemptID validates and returns an AttemptID.
func ParseAttemptID(s string) (AttemptID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AttemptID{}, err
	}
	return AttemptID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return u, nil
}
