package domain

import dErrors "quizforge/pkg/domain-errors"

// Role partitions the application into the two user populations. Every
// credential carries exactly one role; downstream components trust it without
// re-verification once the credential has been verified.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// ParseRole validates a role string from an untrusted source (request body,
// token claim). Anything outside the closed set is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleInstructor:
		return RoleInstructor, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "role must be student or instructor")
	}
}

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleStudent || r == RoleInstructor }
