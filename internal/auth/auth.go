package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/kmccann/secblog/blog/domain"
	"github.com/kmccann/secblog/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves a bearer token to a user. Token issuance happens
// elsewhere; this service only verifies what it is handed.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.User, error)
}

type staticEntry struct {
	hash []byte
	user domain.User
}

// StaticVerifier authenticates against tokens configured at startup. Only
// bcrypt hashes are held in memory; each presented token is compared
// against every configured hash.
type StaticVerifier struct {
	entries []staticEntry
}

var _ Verifier = (*StaticVerifier)(nil)

// NewStaticVerifier builds a verifier from the configured token entries.
func NewStaticVerifier(tokens []config.APIToken) (*StaticVerifier, error) {
	entries := make([]staticEntry, 0, len(tokens))
	for _, t := range tokens {
		// Reject malformed hashes at startup rather than on first login.
		if _, err := bcrypt.Cost([]byte(t.TokenHash)); err != nil {
			return nil, errors.New("auth token for user " + t.UserID + " has an invalid bcrypt hash")
		}
		entries = append(entries, staticEntry{
			hash: []byte(t.TokenHash),
			user: domain.User{
				ID:    t.UserID,
				Name:  t.Name,
				Email: t.Email,
				Role:  domain.Role(t.Role),
			},
		})
	}
	return &StaticVerifier{entries: entries}, nil
}

// Verify compares the presented token against every configured hash and
// returns the matching user, or ErrInvalidToken.
func (v *StaticVerifier) Verify(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	for _, e := range v.entries {
		if bcrypt.CompareHashAndPassword(e.hash, []byte(token)) == nil {
			user := e.user
			return &user, nil
		}
	}
	return nil, ErrInvalidToken
}
