package auth

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier checks a token signature and that the user has not logged out or
// changed password since it was issued.
type Verifier struct {
	Tokens TokenService
	Repo   *Repo
}

func (v Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims, err := v.Tokens.Parse(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if v.Repo != nil {
		current, err := v.Repo.GetTokenVersion(ctx, claims.UserID)
		if err != nil || current != claims.TokenVersion {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// VerifyToken returns the user id behind a valid token. It lets the live sync
// server authenticate clients.
func (v Verifier) VerifyToken(ctx context.Context, raw string) (string, error) {
	claims, err := v.Verify(ctx, raw)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}
