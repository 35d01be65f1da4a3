package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/mcp-calendar/internal/config"
	"github.com/teemow/mcp-calendar/internal/errs"
)

func testConfig(tokenURL string) *oauth2.Config {
	conf := OAuthConfig(config.Credentials{ClientID: "client-id", ClientSecret: "client-secret"}, "http://localhost:3333")
	if tokenURL != "" {
		conf.Endpoint = oauth2.Endpoint{
			AuthURL:   conf.Endpoint.AuthURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}
	return conf
}

func TestAuthURL(t *testing.T) {
	raw := AuthURL(testConfig(""), "state-1")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "https://www.googleapis.com/auth/calendar.events", q.Get("scope"))
	assert.Equal(t, "http://localhost:3333", q.Get("redirect_uri"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "state-1", q.Get("state"))
}

func tokenServer(t *testing.T, status int, body map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExchange_Success(t *testing.T) {
	srv := tokenServer(t, http.StatusOK, map[string]any{
		"access_token":  "access",
		"refresh_token": "1//refresh",
		"token_type":    "Bearer",
		"expires_in":    3600,
	})

	token, err := Exchange(context.Background(), testConfig(srv.URL), "abc")
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)
	assert.Equal(t, "1//refresh", token.RefreshToken)
}

func TestExchange_InvalidGrant(t *testing.T) {
	srv := tokenServer(t, http.StatusBadRequest, map[string]any{
		"error":             "invalid_grant",
		"error_description": "Bad Request",
	})

	_, err := Exchange(context.Background(), testConfig(srv.URL), "expired")
	require.Error(t, err)
	assert.Equal(t, errs.Authorization, errs.KindOf(err))
	assert.True(t, IsInvalidGrant(err))
}

func TestExchange_EmptyCode(t *testing.T) {
	_, err := Exchange(context.Background(), testConfig("http://127.0.0.1:1"), "")
	require.Error(t, err)
	assert.Equal(t, errs.Authorization, errs.KindOf(err))
}

func TestIsInvalidGrant(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retrieve error", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, true},
		{"other retrieve error", &oauth2.RetrieveError{ErrorCode: "invalid_client"}, false},
		{"message only", errors.New("oauth2: invalid_grant"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInvalidGrant(tt.err))
		})
	}
}

func TestRefreshTokenProvider(t *testing.T) {
	var grantType, refreshToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		grantType = r.Form.Get("grant_type")
		refreshToken = r.Form.Get("refresh_token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	provider := NewRefreshTokenProvider(testConfig(srv.URL), "1//refresh")
	ts, err := provider.TokenSource(context.Background())
	require.NoError(t, err)

	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.AccessToken)
	assert.Equal(t, "refresh_token", grantType)
	assert.Equal(t, "1//refresh", refreshToken)
}

func TestRefreshTokenProvider_Empty(t *testing.T) {
	_, err := NewRefreshTokenProvider(testConfig(""), "").TokenSource(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.Configuration, errs.KindOf(err))
}

func TestNewHTTPClient_SetsBearer(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access", TokenType: "Bearer"})

	resp, err := NewHTTPClient(ts, nil).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer access", auth)
}

func TestRefreshTokenProvider_OnRefresh(t *testing.T) {
	srv := tokenServer(t, http.StatusOK, map[string]any{
		"access_token": "fresh",
		"token_type":   "Bearer",
		"expires_in":   3600,
	})

	var calls []error
	provider := NewRefreshTokenProvider(testConfig(srv.URL), "1//refresh")
	provider.OnRefresh = func(err error) { calls = append(calls, err) }

	ts, err := provider.TokenSource(context.Background())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := ts.Token()
		require.NoError(t, err)
	}

	require.Len(t, calls, 1)
	assert.NoError(t, calls[0])
}

func TestRefreshTokenProvider_OnRefreshFailure(t *testing.T) {
	srv := tokenServer(t, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})

	var calls []error
	provider := NewRefreshTokenProvider(testConfig(srv.URL), "1//revoked")
	provider.OnRefresh = func(err error) { calls = append(calls, err) }

	ts, err := provider.TokenSource(context.Background())
	require.NoError(t, err)

	_, err = ts.Token()
	require.Error(t, err)
	require.Len(t, calls, 1)
	assert.True(t, IsInvalidGrant(calls[0]))
}
