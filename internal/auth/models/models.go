// Package models holds the verified principal types shared by the token
// codec, the session resolver, and the route guard.
package models

import (
	"time"

	id "quizforge/pkg/domain"
)

// Identity is the decoded, verified projection of a credential: the usable
// principal for one request. Derived, never persisted; recomputed per request.
// An Identity is only ever produced from a credential that passed signature
// and expiry verification, so downstream components trust Role without
// re-verification.
type Identity struct {
	UserID      id.UserID `json:"id"`
	Role        id.Role   `json:"role"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	Institution string    `json:"institution,omitempty"`
	Department  string    `json:"department,omitempty"`
}

// Claims is the input to credential issuance. Display attributes ride along in
// the token so profile pages render without a store lookup.
type Claims struct {
	UserID      id.UserID
	Role        id.Role
	Email       string
	FullName    string
	Institution string
	Department  string
}

// Session is the per-request authentication result. Identity is nil for an
// anonymous request.
type Session struct {
	Identity *Identity
}

// Authenticated reports whether the session carries a verified principal.
func (s Session) Authenticated() bool { return s.Identity != nil }

// Anonymous is the zero session.
var Anonymous = Session{}

// WhoAmI is the "who am I" query result shaped for external consumption.
type WhoAmI struct {
	Authenticated bool      `json:"authenticated"`
	User          *Identity `json:"user,omitempty"`
}

// LoginResult is returned by the account service after a successful login.
type LoginResult struct {
	Identity  Identity
	Token     string
	ExpiresAt time.Time
}
