package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/mcp-calendar/internal/calendar"
	"github.com/teemow/mcp-calendar/internal/google"
	"github.com/teemow/mcp-calendar/internal/instrumentation"
	"github.com/teemow/mcp-calendar/internal/logging"
	"github.com/teemow/mcp-calendar/internal/server"
	"github.com/teemow/mcp-calendar/internal/tools/calendar_tools"
)

// ServerName is the name the MCP server reports during initialization.
const ServerName = "mcp_calendar"

type serveOptions struct {
	timeZone    string
	metricsAddr string

	// calendarEndpoint overrides the Calendar API base URL.
	calendarEndpoint string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the Model Context Protocol (MCP) server. Requests are read line by line
from stdin and answered on stdout, one at a time and in order.

Required configuration (.env file or environment):
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET  OAuth client credentials
  GOOGLE_REFRESH_TOKEN                    written by "mcp-calendar auth"

Optional:
  TIMEZONE          zone attached to event times (default: Asia/Singapore)
  CALENDAR_TIMEOUT  bound for each calendar call (default: 30s)

Instrumentation is off by default. --metrics-addr turns it on and exposes
Prometheus metrics; INSTRUMENTATION_ENABLED=true selects other exporters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.timeZone, "timezone", "", "IANA time zone for event times. Overrides TIMEZONE.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. localhost:9090. Can also use METRICS_ADDR env var.")
	cmd.Flags().StringVar(&opts.calendarEndpoint, "calendar-endpoint", "", "Override the Calendar API base URL")
	_ = cmd.Flags().MarkHidden("calendar-endpoint")

	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := root.setup(cmd)
	if err != nil {
		return err
	}
	if opts.timeZone != "" {
		cfg.TimeZone = opts.timeZone
	}
	if err := cfg.RequireRefreshToken(); err != nil {
		return err
	}
	if opts.metricsAddr == "" {
		opts.metricsAddr = os.Getenv("METRICS_ADDR")
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.ConsoleWriter = cmd.ErrOrStderr()
	if opts.metricsAddr != "" && !instrConfig.Enabled {
		instrConfig.Enabled = true
		instrConfig.MetricsExporter = instrumentation.ExporterPrometheus
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer shutdownProvider(provider, logger)

	if opts.metricsAddr != "" {
		metricsServer, err := startMetricsServer(opts.metricsAddr, provider, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	metrics := provider.Metrics()

	tokens := google.NewRefreshTokenProvider(google.OAuthConfig(cfg.Credentials, cfg.RedirectURL()), cfg.Credentials.RefreshToken)
	tokens.OnRefresh = func(err error) {
		result := instrumentation.OAuthResultSuccess
		if err != nil {
			result = instrumentation.OAuthResultFailure
			logger.Warn("access token refresh failed", logging.Err(err))
		} else {
			logger.Debug("access token refreshed")
		}
		metrics.RecordOAuthTokenRefresh(context.Background(), result)
	}

	client, err := calendar.NewClient(ctx, tokens, calendar.Options{
		TimeZone: cfg.TimeZone,
		Timeout:  cfg.CalendarTimeout,
		Endpoint: opts.calendarEndpoint,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	sc := server.NewServerContext(client,
		server.WithMetrics(metrics),
		server.WithAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)),
		server.WithLogger(logger),
	)

	transport := server.NewStdioTransport(newMCPServer(), newDispatcher(sc), logger)

	logger.Info("calendar MCP server running on stdio",
		slog.String("version", version),
		slog.String("timezone", cfg.TimeZone))

	err = transport.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	if errors.Is(err, context.Canceled) {
		logger.Info("shutdown signal received")
		return nil
	}
	return err
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer(ServerName, version,
		mcpserver.WithToolCapabilities(false),
	)
}

// newDispatcher builds the tool catalog served over MCP.
func newDispatcher(sc *server.ServerContext) *server.Dispatcher {
	d := server.NewDispatcher(sc.Logger())
	calendar_tools.RegisterCalendarTools(d, sc)
	return d
}

func startMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	go func() {
		if err := metricsServer.Serve(); err != nil {
			logger.Error("metrics server failed", logging.Err(err))
		}
	}()
	return metricsServer, nil
}

func shutdownProvider(provider *instrumentation.Provider, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := provider.Shutdown(ctx); err != nil {
		logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}
