package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/mcp-calendar/internal/auth"
	"github.com/teemow/mcp-calendar/internal/config"
	"github.com/teemow/mcp-calendar/internal/instrumentation"
)

type authOptions struct {
	noBrowser bool
	port      int
	timeout   time.Duration
}

func newAuthCmd(root *rootOptions) *cobra.Command {
	opts := &authOptions{}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize calendar access and store the refresh token",
		Long: `Run the OAuth consent flow for the Google Calendar API.

The consent page is opened in your browser. After you grant access, Google
redirects to a temporary listener on http://localhost:<APP_PORT> (default 3333),
which must be registered as an authorized redirect URI of the OAuth client.
The refresh token is then written to the .env file as GOOGLE_REFRESH_TOKEN;
every other line of the file is kept as it is.

If no refresh token is returned, remove the app's access at
https://myaccount.google.com/permissions and run this command again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Port of the local redirect listener. Overrides APP_PORT.")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "How long to wait for authorization. Overrides AUTH_TIMEOUT.")

	return cmd
}

func runAuth(cmd *cobra.Command, root *rootOptions, opts *authOptions) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := root.setup(cmd)
	if err != nil {
		return err
	}
	if opts.port != 0 {
		cfg.Port = opts.port
	}
	if opts.timeout != 0 {
		cfg.AuthTimeout = opts.timeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.ConsoleWriter = cmd.ErrOrStderr()

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer shutdownProvider(provider, logger)

	var browser auth.BrowserOpener
	if !opts.noBrowser {
		browser = auth.NewSystemBrowser(cmd.ErrOrStderr())
	}

	authorizer, err := auth.New(auth.Options{
		Config:  cfg,
		Store:   config.NewStore(cfg.EnvFile),
		Browser: browser,
		Metrics: provider.Metrics(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	return authorizer.Run(ctx)
}
