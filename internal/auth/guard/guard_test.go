package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"quizforge/internal/auth/models"
	id "quizforge/pkg/domain"
)

type DecideSuite struct {
	suite.Suite
}

func TestDecideSuite(t *testing.T) {
	suite.Run(t, new(DecideSuite))
}

// TestPolicyTable walks the full class x state product. Every pair has
// exactly one decision; a change here is a policy change, not a refactor.
func (s *DecideSuite) TestPolicyTable() {
	cases := []struct {
		name  string
		class PathClass
		state State
		want  Decision
	}{
		{"public anonymous allowed", Public, Unauthenticated, Decision{Kind: Allow}},
		{"public student sent home", Public, AuthenticatedStudent, Decision{Kind: RedirectToRoleHome, Role: id.RoleStudent}},
		{"public instructor sent home", Public, AuthenticatedInstructor, Decision{Kind: RedirectToRoleHome, Role: id.RoleInstructor}},
		{"student area anonymous to login", StudentArea, Unauthenticated, Decision{Kind: RedirectToLogin}},
		{"student area student allowed", StudentArea, AuthenticatedStudent, Decision{Kind: Allow}},
		{"student area instructor sent home", StudentArea, AuthenticatedInstructor, Decision{Kind: RedirectToRoleHome, Role: id.RoleInstructor}},
		{"instructor area anonymous to login", InstructorArea, Unauthenticated, Decision{Kind: RedirectToLogin}},
		{"instructor area student sent home", InstructorArea, AuthenticatedStudent, Decision{Kind: RedirectToRoleHome, Role: id.RoleStudent}},
		{"instructor area instructor allowed", InstructorArea, AuthenticatedInstructor, Decision{Kind: Allow}},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.want, Decide(tc.class, tc.state))
		})
	}
}

func (s *DecideSuite) TestStateOf() {
	s.Run("anonymous session", func() {
		s.Equal(Unauthenticated, StateOf(models.Anonymous))
	})

	s.Run("student session", func() {
		sess := models.Session{Identity: &models.Identity{UserID: id.NewUserID(), Role: id.RoleStudent}}
		s.Equal(AuthenticatedStudent, StateOf(sess))
	})

	s.Run("instructor session", func() {
		sess := models.Session{Identity: &models.Identity{UserID: id.NewUserID(), Role: id.RoleInstructor}}
		s.Equal(AuthenticatedInstructor, StateOf(sess))
	})

	s.Run("unknown role fails closed", func() {
		sess := models.Session{Identity: &models.Identity{UserID: id.NewUserID(), Role: id.Role("admin")}}
		s.Equal(Unauthenticated, StateOf(sess))
	})
}

func (s *DecideSuite) TestRoleHomeMapping() {
	s.Equal(StudentHomePath, RoleHome(id.RoleStudent))
	s.Equal(InstructorHomePath, RoleHome(id.RoleInstructor))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Public, Classify("/"))
	assert.Equal(t, Public, Classify("/login"))
	assert.Equal(t, Public, Classify("/register"))
	assert.Equal(t, Public, Classify("/demo"))
	assert.Equal(t, StudentArea, Classify("/dashboard/student"))
	assert.Equal(t, StudentArea, Classify("/dashboard/student/quizzes/abc"))
	assert.Equal(t, InstructorArea, Classify("/dashboard/instructor"))
	assert.Equal(t, InstructorArea, Classify("/dashboard/instructor/quizzes/new"))
}
