package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quizforge/internal/auth/cookies"
	"quizforge/internal/auth/models"
	"quizforge/internal/auth/session"
	"quizforge/internal/auth/token"
	id "quizforge/pkg/domain"
	"quizforge/pkg/requestcontext"
)

// MiddlewareSuite runs the resolver and guard together, the way the router
// mounts them, so redirects reflect real cookie state.
type MiddlewareSuite struct {
	suite.Suite
	codec   *token.Codec
	manager *cookies.Manager
	handler http.Handler
	now     time.Time
	served  string
}

func (s *MiddlewareSuite) SetupTest() {
	s.codec = token.NewCodec("guard-test-key", "quizforge", token.DefaultTTL)
	s.manager = cookies.NewManager(false, token.DefaultTTL)
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.served = ""

	resolver := session.NewResolver(s.codec, s.manager)
	g := New(s.manager)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.served = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	chain := resolver.Middleware(g.Middleware(inner))
	s.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chain.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), s.now)))
	})
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) credential(role id.Role) *http.Cookie {
	credential, _, err := s.codec.Issue(models.Claims{
		UserID:   id.NewUserID(),
		Role:     role,
		Email:    "user@example.edu",
		FullName: "Test User",
	}, s.now)
	s.Require().NoError(err)
	return &http.Cookie{Name: cookies.CredentialName, Value: credential}
}

func (s *MiddlewareSuite) get(path string, cookieList ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookieList {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *MiddlewareSuite) TestAnonymousOnProtectedPathRedirectsToLoginWithNotice() {
	w := s.get(StudentHomePath)

	s.Equal(http.StatusFound, w.Code)
	s.Equal(LoginPath+"?notice=login_required", w.Header().Get("Location"))
	s.Empty(s.served)
}

func (s *MiddlewareSuite) TestRoleMismatchRedirectsSilentlyToOwnHome() {
	w := s.get(InstructorHomePath, s.credential(id.RoleStudent))

	s.Equal(http.StatusFound, w.Code)
	s.Equal(StudentHomePath, w.Header().Get("Location"))
	s.NotContains(w.Header().Get("Location"), "notice")
}

func (s *MiddlewareSuite) TestAuthenticatedOnPublicPathGoesHome() {
	s.Run("instructor on landing page", func() {
		w := s.get("/", s.credential(id.RoleInstructor))
		s.Equal(http.StatusFound, w.Code)
		s.Equal(InstructorHomePath, w.Header().Get("Location"))
	})

	s.Run("student on login page", func() {
		w := s.get(LoginPath, s.credential(id.RoleStudent))
		s.Equal(http.StatusFound, w.Code)
		s.Equal(StudentHomePath, w.Header().Get("Location"))
	})
}

func (s *MiddlewareSuite) TestMatchingRolePassesThrough() {
	w := s.get(StudentHomePath, s.credential(id.RoleStudent))

	s.Equal(http.StatusOK, w.Code)
	s.Equal(StudentHomePath, s.served)
}

func (s *MiddlewareSuite) TestTamperedCredentialTreatedAsAnonymous() {
	bad := &http.Cookie{Name: cookies.CredentialName, Value: "tampered"}
	w := s.get(InstructorHomePath, bad)

	s.Equal(http.StatusFound, w.Code)
	s.Equal(LoginPath+"?notice=login_required", w.Header().Get("Location"))

	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == cookies.CredentialName && c.MaxAge < 0 {
			cleared = true
		}
	}
	s.True(cleared, "stale credential must be purged during the redirect")
}

// TestLogoutNoticeSuppressedExactlyOnce covers the logout handoff: the first
// redirect after logout carries no notice, the next one does.
func (s *MiddlewareSuite) TestLogoutNoticeSuppressedExactlyOnce() {
	logoutFlag := &http.Cookie{Name: cookies.LogoutNoticeName, Value: "1"}

	first := s.get(StudentHomePath, logoutFlag)
	s.Equal(http.StatusFound, first.Code)
	s.Equal(LoginPath, first.Header().Get("Location"), "no notice right after logout")

	consumed := false
	for _, c := range first.Result().Cookies() {
		if c.Name == cookies.LogoutNoticeName && c.MaxAge < 0 {
			consumed = true
		}
	}
	s.True(consumed, "logout flag must be consumed by the redirect")

	second := s.get(StudentHomePath)
	s.Equal(LoginPath+"?notice=login_required", second.Header().Get("Location"))
}
