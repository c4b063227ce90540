package repository

import (
	"context"

	"github.com/user/bizanalyzer/internal/entity"
)

// RenderOptions tunes a single render.
type RenderOptions struct {
	Screenshot bool
}

// Renderer defines the contract for the headless page rendering mechanism.
type Renderer interface {
	// Render navigates to url through the given session and returns the rendered page.
	Render(ctx context.Context, url string, session entity.Session, opts RenderOptions) (*entity.RenderedPage, error)
}

// SessionProvider binds network egress identities to session ids.
type SessionProvider interface {
	// Bind returns the identity for sessionID. An empty id yields the next rotating identity.
	Bind(sessionID string) entity.Session
	// Describe returns a loggable summary of the proxy configuration.
	Describe() string
}
