package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"

	"github.com/teemow/mcp-calendar/internal/errs"
)

// Recognized configuration keys. They are read from the .env store and from
// the process environment, which takes precedence.
const (
	KeyClientID        = "GOOGLE_CLIENT_ID"
	KeyClientSecret    = "GOOGLE_CLIENT_SECRET"
	KeyRefreshToken    = "GOOGLE_REFRESH_TOKEN"
	KeyPort            = "APP_PORT"
	KeyTimeZone        = "TIMEZONE"
	KeyLogLevel        = "LOG_LEVEL"
	KeyCalendarTimeout = "CALENDAR_TIMEOUT"
	KeyAuthTimeout     = "AUTH_TIMEOUT"
)

const (
	// DefaultEnvFile is the configuration store read by both commands.
	DefaultEnvFile = ".env"

	// DefaultPort is the local port of the authorization callback listener.
	DefaultPort = 3333

	// DefaultTimeZone is attached to event start and end times.
	DefaultTimeZone = "Asia/Singapore"

	// DefaultCalendarTimeout bounds a single provider call.
	DefaultCalendarTimeout = 30 * time.Second

	// DefaultAuthTimeout bounds the whole interactive authorization flow.
	DefaultAuthTimeout = 5 * time.Minute
)

// Credentials is the persisted credential record used to authenticate
// calendar calls.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Config holds the resolved settings for both commands. It is built once at
// startup and passed to constructors.
type Config struct {
	// EnvFile is the path of the .env store the values were read from.
	EnvFile string

	Credentials Credentials

	// Port is the callback listener port; the redirect URL is derived from it.
	Port int

	// TimeZone is the IANA zone sent with event times.
	TimeZone string

	LogLevel string

	CalendarTimeout time.Duration
	AuthTimeout     time.Duration
}

// Load resolves the configuration from defaults, the .env file at envFile and
// the process environment, in increasing order of precedence. A missing file
// is not an error: the environment alone may carry every value.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyTimeZone, DefaultTimeZone)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyCalendarTimeout, DefaultCalendarTimeout)
	v.SetDefault(KeyAuthTimeout, DefaultAuthTimeout)
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, errs.Wrap(errs.Configuration, fmt.Sprintf("failed to read %s: %v", envFile, err), err)
		}
	}

	cfg := &Config{
		EnvFile: envFile,
		Credentials: Credentials{
			ClientID:     v.GetString(KeyClientID),
			ClientSecret: v.GetString(KeyClientSecret),
			RefreshToken: v.GetString(KeyRefreshToken),
		},
		Port:            v.GetInt(KeyPort),
		TimeZone:        v.GetString(KeyTimeZone),
		LogLevel:        v.GetString(KeyLogLevel),
		CalendarTimeout: v.GetDuration(KeyCalendarTimeout),
		AuthTimeout:     v.GetDuration(KeyAuthTimeout),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that have no safe fallback.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errs.New(errs.Configuration, fmt.Sprintf("%s must be a valid TCP port, got %d", KeyPort, c.Port))
	}
	if c.TimeZone == "" {
		return errs.New(errs.Configuration, fmt.Sprintf("%s must not be empty", KeyTimeZone))
	}
	if c.CalendarTimeout < 0 || c.AuthTimeout < 0 {
		return errs.New(errs.Configuration, "timeouts must not be negative")
	}
	return nil
}

// RequireClientCredentials fails when the OAuth client identifier or secret is missing.
func (c *Config) RequireClientCredentials() error {
	if c.Credentials.ClientID == "" || c.Credentials.ClientSecret == "" {
		return errs.New(errs.Configuration,
			fmt.Sprintf("%s and %s must be set in %s or the environment", KeyClientID, KeyClientSecret, c.envFileName()))
	}
	return nil
}

// RequireRefreshToken fails when no refresh token has been stored yet.
func (c *Config) RequireRefreshToken() error {
	if err := c.RequireClientCredentials(); err != nil {
		return err
	}
	if c.Credentials.RefreshToken == "" {
		return errs.New(errs.Configuration,
			fmt.Sprintf("%s is required; run the auth command first", KeyRefreshToken))
	}
	return nil
}

// RedirectURL is the fixed local address the provider redirects to after consent.
func (c *Config) RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// ListenAddr is the address the callback listener binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("localhost:%d", c.Port)
}

func (c *Config) envFileName() string {
	if c.EnvFile == "" {
		return DefaultEnvFile
	}
	return c.EnvFile
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
}
