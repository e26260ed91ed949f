// Package models defines the account domain types and request shapes.
package models

import (
	"strings"
	"time"

	id "quizforge/pkg/domain"
	dErrors "quizforge/pkg/domain-errors"
)

// User is the stored account record. PasswordHash never leaves the account
// service.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash string
	Role         id.Role
	FullName     string
	BirthDate    *time.Time
	Institution  string
	Department   string
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StudentSummary is the roster projection exposed to instructors.
type StudentSummary struct {
	ID          id.UserID  `json:"id"`
	Role        id.Role    `json:"role"`
	FullName    string     `json:"fullName"`
	Email       string     `json:"email"`
	Institution string     `json:"institution"`
	Department  string     `json:"department"`
	BirthDate   *time.Time `json:"birthDate,omitempty"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
}

// RegisterRequest carries a new account submission.
type RegisterRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Role        string  `json:"role"`
	FullName    string  `json:"fullName"`
	BirthDate   *string `json:"birthDate,omitempty"`
	Institution string  `json:"institution,omitempty"`
	Department  string  `json:"department,omitempty"`
}

func (r *RegisterRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
	r.Institution = strings.TrimSpace(r.Institution)
	r.Department = strings.TrimSpace(r.Department)
}

// Validate enforces the role-conditional required fields: students must name
// an institution, instructors a department.
func (r *RegisterRequest) Validate() error {
	if r.Email == "" || r.Password == "" || r.Role == "" || r.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "email, password, role, and fullName are required")
	}
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return err
	}
	if role == id.RoleStudent && r.Institution == "" {
		return dErrors.New(dErrors.CodeValidation, "institution is required for students")
	}
	if role == id.RoleInstructor && r.Department == "" {
		return dErrors.New(dErrors.CodeValidation, "department is required for instructors")
	}
	return nil
}

// LoginRequest carries a credential-check submission.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

// UpdateProfileRequest carries mutable profile fields. Nil pointers mean
// "leave unchanged".
type UpdateProfileRequest struct {
	FullName    *string `json:"fullName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Institution *string `json:"institution,omitempty"`
	Department  *string `json:"department,omitempty"`
}

func (r *UpdateProfileRequest) Normalize() {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(r.FullName)
	trim(r.Institution)
	trim(r.Department)
	if r.Email != nil {
		*r.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
}

func (r *UpdateProfileRequest) Validate() error {
	if r.FullName != nil && *r.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "fullName cannot be empty")
	}
	if r.Email != nil && *r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email cannot be empty")
	}
	return nil
}

// ProfileUpdate pairs the stored record with a reissued credential so the
// client's claims track the change immediately instead of at token expiry.
type ProfileUpdate struct {
	User       *User
	Credential string
	ExpiresAt  time.Time
}

// UpdateStudentRequest carries the roster fields an instructor may edit on a
// student account. Nil pointers mean "leave unchanged".
type UpdateStudentRequest struct {
	FullName    *string `json:"fullName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Institution *string `json:"institution,omitempty"`
	Department  *string `json:"department,omitempty"`
	BirthDate   *string `json:"birthDate,omitempty"`
}

func (r *UpdateStudentRequest) Normalize() {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(r.FullName)
	trim(r.Institution)
	trim(r.Department)
	if r.Email != nil {
		*r.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
}

func (r *UpdateStudentRequest) Validate() error {
	if r.FullName != nil && *r.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "fullName cannot be empty")
	}
	if r.Email != nil && *r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email cannot be empty")
	}
	return nil
}
