package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/config"
	"github.com/salmonumbrella/notion-cli/internal/metrics"
	"github.com/salmonumbrella/notion-cli/internal/output"
	"github.com/salmonumbrella/notion-cli/internal/secrets"
)

var (
	// Version is set at build time
	version = "dev"
	// Commit is set at build time
	commit = "none"
	// Date is set at build time
	date = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = v
	rootCmd.SetVersionTemplate(versionTemplate())
}

// Global flags
var (
	databaseID  string
	apiToken    string
	outputFmt   string
	outputType  output.Format
	debug       bool
	configFile  string
	queryExpr   string
	queryFile   string
	errorFmt    string
	resultLimit int
	concurrency int
)

// Shared state set up by PersistentPreRunE.
var (
	client    api.NotionAPI
	appConfig *config.Config
	logger    = slog.Default()
	recorder  *metrics.PrometheusRecorder
)

var rootCmd = &cobra.Command{
	Use:   "notion",
	Short: "Resolve and render Notion pages from the terminal",
	Long: `notion resolves Notion pages into complete block trees and renders them
as JSON, Markdown or HTML.

It can list the pages of a database, inspect a single page, and build a
static copy of every page in a database.

Environment Variables:
  NOTION_TOKEN        Integration token for authentication
  NOTION_DATABASE_ID  Default database ID`,
	Version: version,
}

func setupCommand(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(dotEnvPath); err != nil {
		return err
	}

	// A broken config file must not lock out "notion config".
	cfg, err := loadConfigFromFlag()
	if err != nil {
		if !isConfigCommand(cmd) {
			return formatConfigLoadError(err)
		}
		cfg = &config.Config{}
	}
	appConfig = cfg
	secrets.UseConfigBackend(cfg.KeyringBackend)

	// Output format selection: --output > config > non-tty json > text
	formatStr := outputFmt
	if !flagChanged(cmd, "output") {
		switch {
		case strings.TrimSpace(cfg.OutputFormat) != "":
			formatStr = strings.TrimSpace(cfg.OutputFormat)
		case !isTerminal(cmd.OutOrStdout()):
			formatStr = string(output.FormatJSON)
		}
	}
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	outputType = format

	if queryExpr != "" && queryFile != "" {
		return fmt.Errorf("use only one of --query or --query-file")
	}
	if queryFile != "" {
		loaded, err := readInputSource(queryFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		queryExpr = loaded
	}

	if err := validateErrorFormat(errorFmt); err != nil {
		return err
	}
	if concurrency < 0 {
		return api.ValidationError{Message: "--concurrency must not be negative"}
	}

	logger = newLogger(cmd.ErrOrStderr(), debug)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = withIO(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx = output.WithFormat(ctx, outputType)
	ctx = output.WithQuery(ctx, queryExpr)
	ctx = output.WithLimit(ctx, resultLimit)
	ctx = WithErrorFormat(ctx, errorFmt)
	cmd.SetContext(ctx)
	rootCmd.SetContext(ctx)

	// Past flag parsing, errors are about the request, not the usage.
	cmd.SilenceUsage = true

	if skipsClient(cmd) {
		return nil
	}

	token, dbID := resolveCredentials(cmd, cfg)
	apiToken = token
	databaseID = dbID

	recorder = metrics.NewPrometheusRecorder(nil)
	opts := append(clientOptionsFromConfig(cfg), api.WithLogger(logger), api.WithRecorder(recorder))
	client, err = newClientFromCredsFunc(apiToken, opts...)
	if err != nil {
		return err
	}
	return nil
}

// skipsClient reports whether cmd runs without an API client.
func skipsClient(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "auth", "config", "completion", "help", "history":
			return true
		}
	}
	return cmd == rootCmd
}

func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return true
		}
	}
	return false
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printCommandError(rootCmd.Context(), err)
		return err
	}
	return nil
}

func versionTemplate() string {
	return fmt.Sprintf("notion version %s (commit: %s, built: %s)\n", version, commit, date)
}

func init() {
	rootCmd.PersistentPreRunE = setupCommand
	// Execute prints errors itself, in the selected error format.
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(versionTemplate())

	rootCmd.PersistentFlags().StringVar(&databaseID, "database", "", "Database ID (env: NOTION_DATABASE_ID)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "Integration token (env: NOTION_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format (text|json|ndjson|table|yaml)")
	rootCmd.PersistentFlags().StringVar(&queryExpr, "query", "", "jq expression to filter JSON output")
	rootCmd.PersistentFlags().StringVar(&queryFile, "query-file", "", "Read jq expression from file (use - for stdin)")
	rootCmd.PersistentFlags().StringVar(&errorFmt, "error-format", "auto", "Error output format (auto|text|json|yaml)")
	rootCmd.PersistentFlags().IntVar(&resultLimit, "result-limit", 0, "Limit number of results in output (0 = unlimited)")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "Concurrent child fetches per page (0 = config or default)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/notion/config.yaml)")
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
