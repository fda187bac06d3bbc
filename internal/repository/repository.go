// Package repository holds the credential store contract and helpers shared
// by its implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/omarshaarawi/courtside/internal/models"
)

var ErrEmptyToken = errors.New("session token must not be empty")

// CredentialStore persists the session token together with the cached user
// profile. Writes only happen through Save, UpdateProfile and Clear, so a
// profile is never readable without its token.
type CredentialStore interface {
	Save(ctx context.Context, token string, profile models.UserProfile) error
	// UpdateProfile replaces the cached profile only while token is still the
	// stored one. It reports whether anything was written.
	UpdateProfile(ctx context.Context, token string, profile models.UserProfile) (bool, error)
	Load(ctx context.Context) (models.Session, error)
	Clear(ctx context.Context) error
}

// TokenExpiry reads the exp claim of a JWT session token without verifying
// its signature. It is informational only; the server remains the authority
// on whether a token is still valid.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parsing token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("reading exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
