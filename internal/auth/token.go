package auth

// Package auth verifies bearer tokens and resolves them to an acting user.

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
	"github.com/artisanhubapp/artisanhub/internal/models"
)

type Claims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

type Verifier struct {
	signingKey []byte
	now        func() time.Time
}

func NewVerifier(signingKey string) *Verifier {
	return &Verifier{
		signingKey: []byte(signingKey),
		now:        time.Now,
	}
}

// Verify parses and validates an HS256 bearer token and returns the actor it
// names. The subject must be a UUID and the role claim a recognized role.
func (v *Verifier) Verify(tokenString string) (lifecycle.Actor, error) {
	if tokenString == "" {
		return lifecycle.Actor{}, fmt.Errorf("missing token")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return v.now() }),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.signingKey, nil
	})
	if err != nil {
		return lifecycle.Actor{}, err
	}
	if !token.Valid {
		return lifecycle.Actor{}, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return lifecycle.Actor{}, fmt.Errorf("invalid subject: %w", err)
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return lifecycle.Actor{}, err
	}

	return lifecycle.Actor{ID: userID, Role: role}, nil
}

// Issue signs a token for the actor. Used by tests and local tooling; the
// production identity service issues tokens with the same claims shape.
func (v *Verifier) Issue(actor lifecycle.Actor, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(actor.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.signingKey)
}
