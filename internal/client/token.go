package client

import (
	"context"
	"errors"
)

// TokenSource supplies the bearer token for Qonic API calls. The
// interactive authorization-code flow that obtains tokens lives outside
// this service; deployments hand the token in through configuration or run
// a sidecar that refreshes it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token, typically injected via
// environment variable.
type StaticTokenSource struct {
	token string
}

// NewStaticTokenSource creates a TokenSource over a fixed token.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

// Token returns the configured token.
func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	if s.token == "" {
		return "", errors.New("no source API token configured")
	}
	return s.token, nil
}
