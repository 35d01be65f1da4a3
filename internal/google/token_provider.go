package google

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/mcp-calendar/internal/errs"
)

// TokenProvider supplies the token source used for calendar calls.
type TokenProvider interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// RefreshTokenProvider derives access tokens from a stored refresh token.
type RefreshTokenProvider struct {
	conf         *oauth2.Config
	refreshToken string

	// OnRefresh, when set, is called with the outcome of every access token
	// fetch from the token endpoint.
	OnRefresh func(err error)
}

// NewRefreshTokenProvider creates a provider for refreshToken using conf's
// client credentials and token endpoint.
func NewRefreshTokenProvider(conf *oauth2.Config, refreshToken string) *RefreshTokenProvider {
	return &RefreshTokenProvider{conf: conf, refreshToken: refreshToken}
}

// TokenSource returns a source that refreshes the access token whenever it
// is missing or expired. Refresh errors surface on the first API request.
func (p *RefreshTokenProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if p.refreshToken == "" {
		return nil, errs.New(errs.Configuration, "no refresh token available")
	}
	ts := p.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: p.refreshToken})
	if p.OnRefresh == nil {
		return ts, nil
	}
	return &notifyingTokenSource{src: ts, notify: p.OnRefresh}, nil
}

// notifyingTokenSource reports each token fetch. Wrapped in a
// ReuseTokenSource it only sees calls made once the cached token expired.
type notifyingTokenSource struct {
	src    oauth2.TokenSource
	notify func(error)

	mu   sync.Mutex
	last string
}

func (s *notifyingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.notify(err)
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		s.notify(nil)
	}
	return tok, nil
}
