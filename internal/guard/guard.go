// Package guard gates protected views on the presence of a session token.
//
// The check is local only. Whether the token is still accepted by the portal
// is discovered on the next request, when the gateway classifies a 401 and
// clears the session.
package guard

import (
	"context"
	"log/slog"

	"github.com/omarshaarawi/courtside/internal/api/portal"
	"github.com/omarshaarawi/courtside/internal/repository"
)

type Guard struct {
	store repository.CredentialStore
}

func New(store repository.CredentialStore) *Guard {
	return &Guard{store: store}
}

func (g *Guard) IsAuthorized(ctx context.Context) bool {
	session, err := g.store.Load(ctx)
	if err != nil {
		slog.Error("Error loading session", "error", err)
		return false
	}
	return session.Authenticated()
}

// Gate reports whether the protected view may render. When it may not, the
// user is redirected to login right away.
func (g *Guard) Gate(ctx context.Context, redirector portal.Redirector) bool {
	if g.IsAuthorized(ctx) {
		return true
	}
	redirector.RedirectToLogin()
	return false
}
