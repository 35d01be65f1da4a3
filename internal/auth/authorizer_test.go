package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/mcp-calendar/internal/config"
	"github.com/teemow/mcp-calendar/internal/errs"
)

// syncBuffer is a log sink shared by the listener goroutines and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeBrowser answers the consent URL by calling the redirect URL with params.
type fakeBrowser struct {
	params  func(authURL *url.URL) url.Values
	openErr error

	mu     sync.Mutex
	opened []*url.URL
}

func (b *fakeBrowser) OpenURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.opened = append(b.opened, u)
	b.mu.Unlock()

	if b.params != nil {
		target := u.Query().Get("redirect_uri") + "/?" + b.params(u).Encode()
		go func() {
			resp, err := http.Get(target)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
	return b.openErr
}

func codeCallback(code string) func(*url.URL) url.Values {
	return func(u *url.URL) url.Values {
		return url.Values{"code": {code}, "state": {u.Query().Get("state")}}
	}
}

type tokenEndpoint struct {
	srv   *httptest.Server
	mu    sync.Mutex
	forms []url.Values
}

func newTokenEndpoint(t *testing.T, status int, body string) *tokenEndpoint {
	t.Helper()
	te := &tokenEndpoint{}
	te.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		te.mu.Lock()
		te.forms = append(te.forms, r.PostForm)
		te.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(te.srv.Close)
	return te
}

func (te *tokenEndpoint) calls() []url.Values {
	te.mu.Lock()
	defer te.mu.Unlock()
	return append([]url.Values(nil), te.forms...)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

type harness struct {
	envFile string
	logs    *syncBuffer
	browser *fakeBrowser
	tokens  *tokenEndpoint
	auth    *Authorizer
}

func newHarness(t *testing.T, envContent string, browser *fakeBrowser, tokens *tokenEndpoint) *harness {
	t.Helper()
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(envContent), 0o600))

	cfg := &config.Config{
		EnvFile: envFile,
		Credentials: config.Credentials{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		},
		Port:        freePort(t),
		TimeZone:    config.DefaultTimeZone,
		AuthTimeout: 5 * time.Second,
	}

	logs := &syncBuffer{}
	opts := Options{
		Config:     cfg,
		Store:      config.NewStore(envFile),
		GraceDelay: 10 * time.Millisecond,
		Logger:     slog.New(slog.NewTextHandler(logs, nil)),
	}
	if browser != nil {
		opts.Browser = browser
	}
	if tokens != nil {
		opts.Endpoint = &oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/o/oauth2/auth",
			TokenURL:  tokens.srv.URL,
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}

	a, err := New(opts)
	require.NoError(t, err)
	return &harness{envFile: envFile, logs: logs, browser: browser, tokens: tokens, auth: a}
}

func (h *harness) env(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(h.envFile)
	require.NoError(t, err)
	return string(data)
}

const initialEnv = "GOOGLE_CLIENT_ID=client-id\nGOOGLE_REFRESH_TOKEN=old-token\nAPP_PORT=3333\n"

func TestRun_StoresRefreshToken(t *testing.T) {
	tokens := newTokenEndpoint(t, http.StatusOK,
		`{"access_token":"access","token_type":"Bearer","refresh_token":"1//new-token","expires_in":3600}`)
	browser := &fakeBrowser{params: codeCallback("auth-code")}
	h := newHarness(t, initialEnv, browser, tokens)

	require.NoError(t, h.auth.Run(context.Background()))

	assert.Equal(t,
		"GOOGLE_CLIENT_ID=client-id\nGOOGLE_REFRESH_TOKEN=\"1//new-token\"\nAPP_PORT=3333\n",
		h.env(t))

	require.Len(t, browser.opened, 1)
	q := browser.opened[0].Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "https://www.googleapis.com/auth/calendar.events", q.Get("scope"))
	assert.Equal(t, h.auth.cfg.RedirectURL(), q.Get("redirect_uri"))

	calls := tokens.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "authorization_code", calls[0].Get("grant_type"))
	assert.Equal(t, "auth-code", calls[0].Get("code"))
	assert.Equal(t, h.auth.cfg.RedirectURL(), calls[0].Get("redirect_uri"))

	assert.NotContains(t, h.logs.String(), "1//new-token", "tokens are never logged")
}

func TestRun_AppendsWhenNoTokenLine(t *testing.T) {
	tokens := newTokenEndpoint(t, http.StatusOK,
		`{"access_token":"access","token_type":"Bearer","refresh_token":"1//new-token"}`)
	h := newHarness(t, "GOOGLE_CLIENT_ID=client-id", &fakeBrowser{params: codeCallback("c")}, tokens)

	require.NoError(t, h.auth.Run(context.Background()))

	assert.Equal(t, "GOOGLE_CLIENT_ID=client-id\nGOOGLE_REFRESH_TOKEN=\"1//new-token\"\n", h.env(t))
}

func TestRun_AcceptsCallbackWithoutState(t *testing.T) {
	tokens := newTokenEndpoint(t, http.StatusOK,
		`{"access_token":"access","token_type":"Bearer","refresh_token":"1//new-token"}`)
	browser := &fakeBrowser{params: func(*url.URL) url.Values {
		return url.Values{"code": {"abc"}}
	}}
	h := newHarness(t, initialEnv, browser, tokens)

	require.NoError(t, h.auth.Run(context.Background()))

	calls := tokens.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "abc", calls[0].Get("code"))
	assert.Contains(t, h.env(t), `GOOGLE_REFRESH_TOKEN="1//new-token"`)
}

func TestRun_BrowserFailureIsTolerated(t *testing.T) {
	tokens := newTokenEndpoint(t, http.StatusOK,
		`{"access_token":"access","token_type":"Bearer","refresh_token":"1//new-token"}`)
	browser := &fakeBrowser{params: codeCallback("c"), openErr: errors.New("no display")}
	h := newHarness(t, initialEnv, browser, tokens)

	require.NoError(t, h.auth.Run(context.Background()))
	assert.Contains(t, h.logs.String(), "failed to open browser")
	assert.Contains(t, h.env(t), `GOOGLE_REFRESH_TOKEN="1//new-token"`)
}

func TestRun_NoRefreshToken(t *testing.T) {
	tokens := newTokenEndpoint(t, http.StatusOK,
		`{"access_token":"access","token_type":"Bearer","expires_in":3600}`)
	h := newHarness(t, initialEnv, &fakeBrowser{params: codeCallback("c")}, tokens)

	require.NoError(t, h.auth.Run(context.Background()))

	assert.Equal(t, initialEnv, h.env(t), "store must be left untouched")
	assert.Contains(t, h.logs.String(), PermissionsURL)
}

func TestRun_InvalidGrant(t *testing.T) {
	tokens := newTokenEndpoint(t, http.StatusBadRequest,
		`{"error":"invalid_grant","error_description":"Bad Request"}`)
	h := newHarness(t, initialEnv, &fakeBrowser{params: codeCallback("stale")}, tokens)

	err := h.auth.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, errs.Authorization, errs.KindOf(err))
	assert.Contains(t, h.logs.String(), "may have expired")
	assert.NotContains(t, h.logs.String(), "level=ERROR", "the caller reports the error")
	assert.Equal(t, initialEnv, h.env(t))
}

func TestRun_ConsentDenied(t *testing.T) {
	tokens := newTokenEndpoint(t, http.StatusOK, `{}`)
	browser := &fakeBrowser{params: func(*url.URL) url.Values {
		return url.Values{"error": {"access_denied"}}
	}}
	h := newHarness(t, initialEnv, browser, tokens)

	err := h.auth.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, errs.Authorization, errs.KindOf(err))
	assert.Contains(t, err.Error(), "access_denied")
	assert.NotContains(t, h.logs.String(), "level=ERROR")
	assert.Empty(t, tokens.calls())
	assert.Equal(t, initialEnv, h.env(t))
}

func TestRun_MissingClientCredentials(t *testing.T) {
	browser := &fakeBrowser{}
	h := newHarness(t, "", browser, nil)
	h.auth.cfg.Credentials.ClientSecret = ""

	err := h.auth.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, errs.Configuration, errs.KindOf(err))
	assert.Contains(t, err.Error(), config.KeyClientSecret)
	assert.Empty(t, browser.opened)
}

func TestRun_Timeout(t *testing.T) {
	h := newHarness(t, initialEnv, nil, nil)
	h.auth.cfg.AuthTimeout = 50 * time.Millisecond

	start := time.Now()
	err := h.auth.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, errs.Authorization, errs.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, initialEnv, h.env(t))
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.Equal(t, errs.Configuration, errs.KindOf(err))
}
