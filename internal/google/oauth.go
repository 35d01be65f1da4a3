package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/mcp-calendar/internal/config"
	"github.com/teemow/mcp-calendar/internal/errs"
)

// ErrorCodeInvalidGrant is returned by the token endpoint for expired or
// already used authorization codes.
const ErrorCodeInvalidGrant = "invalid_grant"

// OAuthConfig returns the OAuth2 configuration for the given client
// credentials. The token endpoint defaults to Google's and can be replaced
// by setting Endpoint on the returned value.
func OAuthConfig(creds config.Credentials, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       DefaultOAuthScopes,
	}
}

// AuthURL returns the consent URL. Offline access and a forced consent prompt
// make the provider issue a refresh token even for a returning user.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a token.
func Exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errs.New(errs.Authorization, "authorization code is empty")
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, errs.Wrap(errs.Authorization, fmt.Sprintf("failed to exchange authorization code: %v", err), err)
	}
	return token, nil
}

// IsInvalidGrant reports whether err is the token endpoint rejecting the
// authorization code.
func IsInvalidGrant(err error) bool {
	if err == nil {
		return false
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		return re.ErrorCode == ErrorCodeInvalidGrant
	}
	return strings.Contains(err.Error(), ErrorCodeInvalidGrant)
}

// NewHTTPClient returns an HTTP client that authorizes every request with a
// token from ts. When base is nil the client is forced onto HTTP/1.1, which
// avoids stream errors seen with the Google APIs over HTTP/2.
func NewHTTPClient(ts oauth2.TokenSource, base http.RoundTripper) *http.Client {
	if base == nil {
		base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base:   base,
		},
	}
}
