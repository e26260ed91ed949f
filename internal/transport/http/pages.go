package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizforge/internal/auth/guard"
	"quizforge/internal/auth/session"
)

// registerPages mounts the minimal page shells the guard routes between.
// Rendering is the frontend's job; these handlers only anchor the paths and
// confirm which area the request landed in.
func registerPages(r chi.Router) {
	r.Get("/", page("home"))
	r.Get(guard.LoginPath, page("login"))
	r.Get("/register", page("register"))
	r.Get("/demo", page("demo"))
	r.Get(guard.StudentHomePath, dashboard("student dashboard"))
	r.Get(guard.StudentHomePath+"/*", dashboard("student area"))
	r.Get(guard.InstructorHomePath, dashboard("instructor dashboard"))
	r.Get(guard.InstructorHomePath+"/*", dashboard("instructor area"))
}

func page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<!DOCTYPE html><title>QuizForge</title><h1>%s</h1>", name)
	}
}

func dashboard(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<!DOCTYPE html><title>QuizForge</title><h1>%s</h1><p>%s</p>",
			name, sess.Identity.FullName)
	}
}
