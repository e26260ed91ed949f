package handler

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"quizforge/internal/account/models"
	"quizforge/internal/account/service"
	userstore "quizforge/internal/account/store/user"
	"quizforge/internal/auth/cookies"
	authmodels "quizforge/internal/auth/models"
	"quizforge/internal/auth/session"
	"quizforge/internal/auth/token"
	"quizforge/pkg/testutil"
)

// HandlerSuite mounts the full account surface the way the router does:
// resolver middleware in front, real service and in-memory store behind.
type HandlerSuite struct {
	suite.Suite
	users   *userstore.InMemoryStore
	router  http.Handler
	codec   *token.Codec
	manager *cookies.Manager
}

func (s *HandlerSuite) SetupTest() {
	s.users = userstore.NewInMemory()
	s.codec = token.NewCodec("handler-test-key", "quizforge", token.DefaultTTL)
	s.manager = cookies.NewManager(false, token.DefaultTTL)

	accounts := service.New(s.users, s.codec)
	resolver := session.NewResolver(s.codec, s.manager)
	h := New(accounts, s.manager, slog.Default())

	r := chi.NewRouter()
	r.Use(resolver.Middleware)
	h.Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) register(email, role string) *authmodels.Identity {
	s.T().Helper()
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email:       email,
		Password:    "correct horse battery staple",
		Role:        role,
		FullName:    "Ana Torres",
		Institution: "Example University",
		Department:  "Computer Science",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[authmodels.Identity](s.T(), rr)
}

// login authenticates and returns the credential cookies the server set.
func (s *HandlerSuite) login(email string) []*http.Cookie {
	s.T().Helper()
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login", models.LoginRequest{
		Email:    email,
		Password: "correct horse battery staple",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	return rr.Result().Cookies()
}

func cookieNamed(cookieList []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookieList {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *HandlerSuite) TestRegister() {
	identity := s.register("ana@example.edu", "student")
	s.Equal("ana@example.edu", identity.Email)
	s.Equal("student", string(identity.Role))
	s.NotEmpty(identity.UserID)
}

func (s *HandlerSuite) TestRegisterRejectsBadInput() {
	cases := []struct {
		name string
		req  models.RegisterRequest
		code string
	}{
		{
			"invalid email",
			models.RegisterRequest{Email: "not-an-email", Password: "longenough", Role: "student", FullName: "A", Institution: "U"},
			"validation_error",
		},
		{
			"short password",
			models.RegisterRequest{Email: "ok@example.edu", Password: "short", Role: "student", FullName: "A", Institution: "U"},
			"validation_error",
		},
		{
			"unknown role",
			models.RegisterRequest{Email: "ok@example.edu", Password: "longenough", Role: "admin", FullName: "A"},
			"validation_error",
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register", tc.req)
			rr := testutil.DoRequest(s.router, req)
			testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
			testutil.AssertErrorCode(s.T(), rr, tc.code)
		})
	}
}

func (s *HandlerSuite) TestRegisterDuplicateEmail() {
	s.register("ana@example.edu", "student")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email:       "ana@example.edu",
		Password:    "correct horse battery staple",
		Role:        "student",
		FullName:    "Ana Again",
		Institution: "Example University",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
}

func (s *HandlerSuite) TestLoginSetsCookiesAndRedirect() {
	s.register("ana@example.edu", "student")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login", models.LoginRequest{
		Email:    "ana@example.edu",
		Password: "correct horse battery staple",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[loginResponse](s.T(), rr)
	s.Equal("/dashboard/student", resp.Redirect)
	s.Equal("ana@example.edu", resp.User.Email)

	credential := cookieNamed(rr.Result().Cookies(), cookies.CredentialName)
	s.Require().NotNil(credential)
	s.True(credential.HttpOnly)
	identity, err := s.codec.Verify(credential.Value, time.Now())
	s.Require().NoError(err)
	s.Equal("ana@example.edu", identity.Email)

	mirror := cookieNamed(rr.Result().Cookies(), cookies.MirrorName)
	s.Require().NotNil(mirror)
	s.False(mirror.HttpOnly)
}

func (s *HandlerSuite) TestLoginInstructorRedirect() {
	s.register("prof@example.edu", "instructor")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login", models.LoginRequest{
		Email:    "prof@example.edu",
		Password: "correct horse battery staple",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[loginResponse](s.T(), rr)
	s.Equal("/dashboard/instructor", resp.Redirect)
}

func (s *HandlerSuite) TestLoginWrongPassword() {
	s.register("ana@example.edu", "student")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login", models.LoginRequest{
		Email:    "ana@example.edu",
		Password: "wrong password here",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	s.Nil(cookieNamed(rr.Result().Cookies(), cookies.CredentialName))
}

func (s *HandlerSuite) TestLogoutClearsCredentialAndArmsNotice() {
	s.register("ana@example.edu", "student")
	sessionCookies := s.login("ana@example.edu")

	req := testutil.NewRequest(s.T(), http.MethodPost, "/api/auth/logout")
	for _, c := range sessionCookies {
		req.AddCookie(c)
	}
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	credential := cookieNamed(rr.Result().Cookies(), cookies.CredentialName)
	s.Require().NotNil(credential)
	s.True(credential.MaxAge < 0, "credential cookie must be expired")

	notice := cookieNamed(rr.Result().Cookies(), cookies.LogoutNoticeName)
	s.Require().NotNil(notice)
	s.True(notice.MaxAge > 0)
}

func (s *HandlerSuite) TestLogoutWhileAnonymous() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/api/auth/logout"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *HandlerSuite) TestMe() {
	s.Run("anonymous", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/me"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		who := testutil.UnmarshalResponse[authmodels.WhoAmI](s.T(), rr)
		s.False(who.Authenticated)
		s.Nil(who.User)
	})

	s.Run("authenticated", func() {
		s.register("ana@example.edu", "student")
		sessionCookies := s.login("ana@example.edu")

		req := testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/me")
		for _, c := range sessionCookies {
			req.AddCookie(c)
		}
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		who := testutil.UnmarshalResponse[authmodels.WhoAmI](s.T(), rr)
		s.True(who.Authenticated)
		s.Require().NotNil(who.User)
		s.Equal("ana@example.edu", who.User.Email)
	})
}

func (s *HandlerSuite) TestUpdateProfileRequiresAuth() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/auth/update-profile", models.UpdateProfileRequest{})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	testutil.AssertErrorCode(s.T(), rr, "unauthorized")
}

func (s *HandlerSuite) TestUpdateProfile() {
	s.register("ana@example.edu", "student")
	sessionCookies := s.login("ana@example.edu")

	name := "Ana M. Torres"
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/auth/update-profile", models.UpdateProfileRequest{
		FullName: &name,
	})
	for _, c := range sessionCookies {
		req.AddCookie(c)
	}
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	profile := testutil.UnmarshalResponse[profileResponse](s.T(), rr)
	s.Equal("Ana M. Torres", profile.FullName)
	s.Equal("ana@example.edu", profile.Email)

	// The response reissues the credential so its claims carry the change.
	credential := cookieNamed(rr.Result().Cookies(), cookies.CredentialName)
	s.Require().NotNil(credential, "update must set a fresh credential cookie")
	identity, err := s.codec.Verify(credential.Value, time.Now())
	s.Require().NoError(err)
	s.Equal("Ana M. Torres", identity.FullName)
}

func (s *HandlerSuite) TestMeReflectsProfileUpdate() {
	s.register("ana@example.edu", "student")
	sessionCookies := s.login("ana@example.edu")

	name := "Ana Maria Torres"
	update := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/auth/update-profile", models.UpdateProfileRequest{
		FullName: &name,
	})
	for _, c := range sessionCookies {
		update.AddCookie(c)
	}
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, update), http.StatusOK)

	// Even a client still holding the pre-update cookie sees the new name.
	req := testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/me")
	for _, c := range sessionCookies {
		req.AddCookie(c)
	}
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	who := testutil.UnmarshalResponse[authmodels.WhoAmI](s.T(), rr)
	s.Require().NotNil(who.User)
	s.Equal("Ana Maria Torres", who.User.FullName)
}

func (s *HandlerSuite) TestListStudentsInstructorOnly() {
	s.register("ana@example.edu", "student")
	s.register("prof@example.edu", "instructor")

	s.Run("student is refused", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/students")
		for _, c := range s.login("ana@example.edu") {
			req.AddCookie(c)
		}
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("instructor lists students", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/students")
		for _, c := range s.login("prof@example.edu") {
			req.AddCookie(c)
		}
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		students := testutil.UnmarshalResponse[[]models.StudentSummary](s.T(), rr)
		s.Require().Len(*students, 1)
		s.Equal("ana@example.edu", (*students)[0].Email)
	})
}

func (s *HandlerSuite) TestUpdateStudent() {
	student := s.register("ana@example.edu", "student")
	instructor := s.register("prof@example.edu", "instructor")
	instructorCookies := s.login("prof@example.edu")

	name := "Ana Beatriz Torres"

	s.Run("anonymous is refused", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/auth/students/"+student.UserID.String(),
			models.UpdateStudentRequest{FullName: &name})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("student is refused", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/auth/students/"+student.UserID.String(),
			models.UpdateStudentRequest{FullName: &name})
		for _, c := range s.login("ana@example.edu") {
			req.AddCookie(c)
		}
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("instructor updates a student", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/auth/students/"+student.UserID.String(),
			models.UpdateStudentRequest{FullName: &name})
		for _, c := range instructorCookies {
			req.AddCookie(c)
		}
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		summary := testutil.UnmarshalResponse[models.StudentSummary](s.T(), rr)
		s.Equal("Ana Beatriz Torres", summary.FullName)
	})

	s.Run("instructor target reads as not found", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/auth/students/"+instructor.UserID.String(),
			models.UpdateStudentRequest{FullName: &name})
		for _, c := range instructorCookies {
			req.AddCookie(c)
		}
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("malformed id rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/auth/students/not-a-uuid",
			models.UpdateStudentRequest{FullName: &name})
		for _, c := range instructorCookies {
			req.AddCookie(c)
		}
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestDeleteStudent() {
	student := s.register("ana@example.edu", "student")
	s.register("prof@example.edu", "instructor")
	instructorCookies := s.login("prof@example.edu")

	s.Run("student is refused", func() {
		req := testutil.NewRequest(s.T(), http.MethodDelete, "/api/auth/students/"+student.UserID.String())
		for _, c := range s.login("ana@example.edu") {
			req.AddCookie(c)
		}
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("instructor deletes a student", func() {
		req := testutil.NewRequest(s.T(), http.MethodDelete, "/api/auth/students/"+student.UserID.String())
		for _, c := range instructorCookies {
			req.AddCookie(c)
		}
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("repeat delete reads as not found", func() {
		req := testutil.NewRequest(s.T(), http.MethodDelete, "/api/auth/students/"+student.UserID.String())
		for _, c := range instructorCookies {
			req.AddCookie(c)
		}
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})
}
