package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/mcp-calendar/internal/config"
	"github.com/teemow/mcp-calendar/internal/logging"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the version command and the MCP server.
func SetVersion(v string) {
	version = v
}

// rootOptions holds the flags shared by all commands.
type rootOptions struct {
	envFile  string
	logLevel string
	debug    bool
}

// setup loads the configuration and builds the logger for a command. Flags
// take precedence over LOG_LEVEL.
func (o *rootOptions) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = o.logLevel
	}
	if o.debug {
		level = "debug"
	}
	cfg.LogLevel = level

	logger := logging.New(level, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "mcp-calendar",
		Short: "MCP server that creates Google Calendar events",
		Long: `mcp-calendar is a Model Context Protocol (MCP) server that lets AI assistants
create events in your Google Calendar.

Run "mcp-calendar auth" once to authorize calendar access. The refresh token is
stored in the .env file next to GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
Afterwards "mcp-calendar serve" (or just "mcp-calendar") speaks MCP on stdio.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(`{{printf "mcp-calendar version %s\n" .Version}}`)

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Path of the .env configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newAuthCmd(opts))
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newGenerateDocsCmd())

	return cmd
}

// withDefaultCommand prepends name to args when they select no subcommand.
func withDefaultCommand(root *cobra.Command, args []string, name string) []string {
	for _, a := range args {
		switch a {
		case "-h", "--help", "help", "--version", "completion":
			return args
		}
	}
	if c, _, err := root.Find(args); err != nil || c != root {
		return args
	}
	return append([]string{name}, args...)
}

// Execute is the main entry point for the CLI application
func Execute() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetErr(stderr)
	root.SetArgs(withDefaultCommand(root, args, "serve"))

	if err := root.Execute(); err != nil {
		slog.New(slog.NewTextHandler(stderr, nil)).Error("command failed", logging.Err(err))
		return 1
	}
	return 0
}
