// Package token implements the credential codec: turning a principal's claims
// into a signed, time-limited bearer credential and back.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quizforge/internal/auth/models"
	id "quizforge/pkg/domain"
)

// Verification failure taxonomy. The distinction exists for logging and
// metrics only; callers collapse all three to "invalid credential" and must
// never surface them to end users.
var (
	ErrSignatureInvalid = errors.New("credential signature invalid")
	ErrExpired          = errors.New("credential expired")
	ErrMalformed        = errors.New("credential claims malformed")
)

// DefaultTTL is the credential lifetime fixed at issuance.
const DefaultTTL = 7 * 24 * time.Hour

type tokenClaims struct {
	UserID      string `json:"id"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	FullName    string `json:"fullName"`
	Institution string `json:"institution,omitempty"`
	Department  string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies credentials with a server-held HMAC secret.
// Pure computation, safe for concurrent use.
type Codec struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewCodec(signingKey string, issuer string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{signingKey: []byte(signingKey), issuer: issuer, ttl: ttl}
}

// TTL returns the configured credential lifetime, for cookie max-age.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs claims into a credential expiring at now + TTL.
func (c *Codec) Issue(claims models.Claims, now time.Time) (string, time.Time, error) {
	if claims.UserID.IsNil() || !claims.Role.Valid() || claims.Email == "" {
		return "", time.Time{}, ErrMalformed
	}
	expiresAt := now.Add(c.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID:      claims.UserID.String(),
		Role:        claims.Role.String(),
		Email:       claims.Email,
		FullName:    claims.FullName,
		Institution: claims.Institution,
		Department:  claims.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.issuer,
		},
	})
	signed, err := t.SignedString(c.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the credential's signature against the server secret, its
// expiry against now, and the presence and type of the required claim fields.
// The expiry bound is exclusive: a credential whose expiry equals now is
// already expired.
func (c *Codec) Verify(credential string, now time.Time) (*models.Identity, error) {
	parsed, err := jwt.ParseWithClaims(credential, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrSignatureInvalid
		default:
			return nil, ErrMalformed
		}
	}
	if !parsed.Valid {
		return nil, ErrSignatureInvalid
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok {
		return nil, ErrMalformed
	}

	// Explicit schema check after signature verification; never trust an
	// optimistic cast of the payload.
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, ErrMalformed
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return nil, ErrMalformed
	}
	if claims.Email == "" {
		return nil, ErrMalformed
	}
	if claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	// The jwt library treats exp as valid while now < exp; this restates the
	// closed upper bound so the invariant does not depend on library defaults.
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}

	return &models.Identity{
		UserID:      userID,
		Role:        role,
		Email:       claims.Email,
		FullName:    claims.FullName,
		Institution: claims.Institution,
		Department:  claims.Department,
	}, nil
}
