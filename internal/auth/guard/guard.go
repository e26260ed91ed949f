// Package guard gates access to role-partitioned areas and keeps
// authenticated users off public-only pages. The decision function is pure:
// every caller consults it instead of re-deriving role-to-path rules inline.
package guard

import (
	"quizforge/internal/auth/models"
	id "quizforge/pkg/domain"
)

// State classifies one request's session. Transitions are never stored; each
// request is classified fresh from the resolved session.
type State int

const (
	Unauthenticated State = iota
	AuthenticatedStudent
	AuthenticatedInstructor
)

func (s State) String() string {
	switch s {
	case AuthenticatedStudent:
		return "student"
	case AuthenticatedInstructor:
		return "instructor"
	default:
		return "unauthenticated"
	}
}

// StateOf derives the guard state from a resolved session. Anything outside
// the two known roles is unauthenticated, fail-closed.
func StateOf(sess models.Session) State {
	if !sess.Authenticated() {
		return Unauthenticated
	}
	switch sess.Identity.Role {
	case id.RoleStudent:
		return AuthenticatedStudent
	case id.RoleInstructor:
		return AuthenticatedInstructor
	default:
		return Unauthenticated
	}
}

// PathClass partitions routes by their role requirement.
type PathClass int

const (
	Public PathClass = iota
	StudentArea
	InstructorArea
)

func (c PathClass) String() string {
	switch c {
	case StudentArea:
		return "student_area"
	case InstructorArea:
		return "instructor_area"
	default:
		return "public"
	}
}

// DecisionKind enumerates the guard outcomes.
type DecisionKind int

const (
	Allow DecisionKind = iota
	RedirectToLogin
	RedirectToRoleHome
)

func (k DecisionKind) String() string {
	switch k {
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToRoleHome:
		return "redirect_role_home"
	default:
		return "allow"
	}
}

// Decision is the guard verdict for one (path class, state) pair.
type Decision struct {
	Kind DecisionKind
	// Role is set for RedirectToRoleHome: the role whose home area the
	// requester belongs in.
	Role id.Role
}

// Role-home mapping. The same table serves post-login redirection so the two
// never drift apart.
const (
	LoginPath          = "/login"
	StudentHomePath    = "/dashboard/student"
	InstructorHomePath = "/dashboard/instructor"
)

// RoleHome returns the home area path for a role.
func RoleHome(role id.Role) string {
	if role == id.RoleInstructor {
		return InstructorHomePath
	}
	return StudentHomePath
}

// Decide evaluates the policy table. Total: exactly one decision for every
// (path class, state) pair.
//
//	public        + unauthenticated -> allow
//	public        + authenticated   -> redirect to own role home
//	role area     + matching role   -> allow
//	role area     + other role      -> redirect to own role home (silent)
//	role area     + unauthenticated -> redirect to login
func Decide(class PathClass, state State) Decision {
	if class == Public {
		switch state {
		case AuthenticatedStudent:
			return Decision{Kind: RedirectToRoleHome, Role: id.RoleStudent}
		case AuthenticatedInstructor:
			return Decision{Kind: RedirectToRoleHome, Role: id.RoleInstructor}
		default:
			return Decision{Kind: Allow}
		}
	}

	switch state {
	case Unauthenticated:
		return Decision{Kind: RedirectToLogin}
	case AuthenticatedStudent:
		if class == StudentArea {
			return Decision{Kind: Allow}
		}
		return Decision{Kind: RedirectToRoleHome, Role: id.RoleStudent}
	default: // AuthenticatedInstructor
		if class == InstructorArea {
			return Decision{Kind: Allow}
		}
		return Decision{Kind: RedirectToRoleHome, Role: id.RoleInstructor}
	}
}
