package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/mcp-calendar/internal/config"
	"github.com/teemow/mcp-calendar/internal/errs"
	"github.com/teemow/mcp-calendar/internal/google"
	"github.com/teemow/mcp-calendar/internal/instrumentation"
	"github.com/teemow/mcp-calendar/internal/logging"
)

const (
	// DefaultGraceDelay is how long the listener stays up after the code arrived,
	// so the browser receives the complete success page.
	DefaultGraceDelay = time.Second

	// PermissionsURL is where a user revokes a previous grant.
	PermissionsURL = "https://myaccount.google.com/permissions"
)

// Options configures an Authorizer.
type Options struct {
	Config *config.Config
	Store  *config.Store

	// Browser opens the consent URL. Nil skips the launch.
	Browser BrowserOpener

	// Endpoint replaces Google's OAuth endpoints.
	Endpoint *oauth2.Endpoint

	// HTTPClient is used for the code exchange.
	HTTPClient *http.Client

	// GraceDelay defaults to DefaultGraceDelay.
	GraceDelay time.Duration

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Authorizer runs the interactive authorization flow.
type Authorizer struct {
	cfg        *config.Config
	store      *config.Store
	browser    BrowserOpener
	endpoint   *oauth2.Endpoint
	httpClient *http.Client
	grace      time.Duration
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// New creates an Authorizer. The store defaults to the configuration's .env file.
func New(opts Options) (*Authorizer, error) {
	if opts.Config == nil {
		return nil, errs.New(errs.Configuration, "configuration is required")
	}
	if opts.Store == nil {
		opts.Store = config.NewStore(opts.Config.EnvFile)
	}
	if opts.GraceDelay <= 0 {
		opts.GraceDelay = DefaultGraceDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Authorizer{
		cfg:        opts.Config,
		store:      opts.Store,
		browser:    opts.Browser,
		endpoint:   opts.Endpoint,
		httpClient: opts.HTTPClient,
		grace:      opts.GraceDelay,
		metrics:    opts.Metrics,
		logger:     logging.WithOperation(opts.Logger, "auth"),
	}, nil
}

// Run obtains a refresh token and writes it to the store. It returns nil when
// the provider issued no refresh token; the store is then left unchanged.
func (a *Authorizer) Run(ctx context.Context) error {
	if err := a.cfg.RequireClientCredentials(); err != nil {
		return err
	}

	if a.cfg.AuthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.AuthTimeout)
		defer cancel()
	}

	conf := google.OAuthConfig(a.cfg.Credentials, a.cfg.RedirectURL())
	if a.endpoint != nil {
		conf.Endpoint = *a.endpoint
	}

	state := uuid.NewString()
	authURL := google.AuthURL(conf, state)

	l, err := newCallbackListener(a.cfg.ListenAddr(), state, a.metrics, a.logger)
	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return err
	}
	go l.serve()

	// The listener lingers only when a browser is waiting for the success page.
	var grace time.Duration
	defer func() {
		l.shutdownAfter(grace)
		<-l.closed
	}()

	a.openBrowser(authURL)
	a.logger.Info("waiting for authorization")

	code, err := a.waitForCode(ctx, l)
	if err != nil {
		return err
	}
	grace = a.grace

	a.logger.Info("exchanging code for tokens")
	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}
	token, err := google.Exchange(ctx, conf, code)
	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		if google.IsInvalidGrant(err) {
			a.logger.Warn("the authorization code may have expired, please try again")
		}
		return err
	}
	a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	if token.RefreshToken == "" {
		a.logger.Warn("no refresh token received; remove the app's access and run auth again",
			slog.String(logging.KeyURL, PermissionsURL))
		return nil
	}

	if err := a.store.SetRefreshToken(token.RefreshToken); err != nil {
		return err
	}
	a.logger.Info("refresh token saved",
		slog.String("file", a.store.Path()),
		slog.String("token", logging.SanitizeToken(token.RefreshToken)))
	return nil
}

func (a *Authorizer) openBrowser(authURL string) {
	a.logger.Info("open this URL to authorize calendar access", slog.String(logging.KeyURL, authURL))
	if a.browser == nil {
		return
	}
	if err := a.browser.OpenURL(authURL); err != nil {
		a.logger.Warn("failed to open browser, open the URL manually", logging.Err(err))
	}
}

func (a *Authorizer) waitForCode(ctx context.Context, l *callbackListener) (string, error) {
	select {
	case res := <-l.result:
		if res.err != nil {
			result := instrumentation.OAuthResultFailure
			if res.denied {
				result = instrumentation.OAuthResultDenied
			}
			a.metrics.RecordOAuthAuth(ctx, result)
			return "", res.err
		}
		return res.code, nil
	case <-ctx.Done():
		a.metrics.RecordOAuthAuth(context.Background(), instrumentation.OAuthResultFailure)
		msg := "authorization cancelled"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = "timed out waiting for authorization"
		}
		return "", errs.Wrap(errs.Authorization, msg, ctx.Err())
	}
}
