// Package cli implements the fradss command line: serving the API, analysing
// claims from files, managing the model lifecycle and exporting the synthetic
// corpus.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ForestRights-DSS/internal/application/analysis"
	"github.com/turtacn/ForestRights-DSS/internal/bootstrap"
	"github.com/turtacn/ForestRights-DSS/internal/config"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// defaultConfigPaths are tried in order when --config is not given.
var defaultConfigPaths = []string{"./fradss.yaml", "/etc/fradss/config.yaml"}

type cliContextKey struct{}

// Application is the wired service the commands drive. *bootstrap.App
// implements it.
type Application interface {
	Analyzer() analysis.Analyzer
	Models() *claim_dss.ModelService
	Initialize(ctx context.Context) (*bootstrap.InitReport, error)
	Run(ctx context.Context) error
	Close()
}

// AppFactory builds the Application for commands that need one.
type AppFactory func(ctx context.Context, cfg *config.Config, log logging.Logger) (Application, error)

// DefaultAppFactory wires the real service.
func DefaultAppFactory(ctx context.Context, cfg *config.Config, log logging.Logger) (Application, error) {
	app, err := bootstrap.New(ctx, cfg, log, bootstrap.Options{Version: Version})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	EnvFile      string
	LogLevel     string
	OutputFormat string
	Server       string

	newApp AppFactory
}

// RootOption customises NewRootCommand.
type RootOption func(*RootOptions)

// WithAppFactory replaces the service wiring, mostly for tests.
func WithAppFactory(f AppFactory) RootOption {
	return func(o *RootOptions) { o.newApp = f }
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	ConfigPath   string
	Logger       logging.Logger
	OutputFormat string
	// Server is the base URL of a running fradss API. When set, analyze and
	// the model commands call it instead of building a local service.
	Server       string

	newApp AppFactory
}

// NewApp builds the Application. Callers must Close it.
func (c *CLIContext) NewApp(ctx context.Context) (Application, error) {
	return c.newApp(ctx, c.Config, c.Logger)
}

// NewRootCommand creates the root command with its global flags and
// subcommands.
func NewRootCommand(options ...RootOption) *cobra.Command {
	opts := &RootOptions{newApp: DefaultAppFactory}
	for _, o := range options {
		o(opts)
	}

	cmd := &cobra.Command{
		Use:   "fradss",
		Short: "Decision support for Forest Rights Act claims",
		Long: "fradss scores Forest Rights Act claims with locally trained models:\n" +
			"a recommended action, a risk assessment, similar precedent cases and\n" +
			"human readable reasoning.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./fradss.yaml, then /etc/fradss/config.yaml)")
	pf.StringVar(&opts.EnvFile, "env-file", ".env", "KEY=VALUE file loaded into the environment before the config")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json)")
	pf.StringVar(&opts.Server, "server", "", "fradss API base URL; analyze and model commands call it instead of local models")

	cmd.AddCommand(
		newServeCmd(),
		newAnalyzeCmd(),
		newModelCmd(),
		newCorpusCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch opts.OutputFormat {
	case OutputText, OutputJSON:
	default:
		return errors.Newf(errors.ErrCodeValidation, "unsupported output format %q (must be text or json)", opts.OutputFormat)
	}

	cfg, path, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(cmd, cfg, opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		ConfigPath:   path,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
		Server:       opts.Server,
		newApp:       opts.newApp,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initConfig resolves configuration with priority: --config file, default
// file locations, then FRADSS_* environment variables alone.
func initConfig(opts *RootOptions) (*config.Config, string, error) {
	if opts.EnvFile != "" {
		if err := config.LoadDotEnv(opts.EnvFile); err != nil {
			return nil, "", err
		}
	}

	if opts.ConfigPath != "" {
		cfg, err := config.Load(opts.ConfigPath)
		return cfg, opts.ConfigPath, err
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			cfg, err := config.Load(p)
			return cfg, p, err
		}
	}
	cfg, err := config.LoadFromEnv()
	return cfg, "", err
}

// initLogger honours the configured logger for serve. Every other command
// logs in console format to stderr so stdout stays machine readable.
func initLogger(cmd *cobra.Command, cfg *config.Config, opts *RootOptions) (logging.Logger, error) {
	logCfg := cfg.Log
	if cmd.Name() != "serve" {
		logCfg = logging.LogConfig{
			Level:            cfg.Log.Level,
			Format:           "console",
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
		}
	}
	if opts.LogLevel != "" {
		logCfg.Level = strings.ToLower(opts.LogLevel)
	}
	return logging.NewLogger(logCfg)
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// withApp builds the Application, runs fn and closes it.
func withApp(cmd *cobra.Command, fn func(cliCtx *CLIContext, app Application) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	app, err := cliCtx.NewApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()
	defer logging.Sync(cliCtx.Logger)
	return fn(cliCtx, app)
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// textRenderer is implemented by results with a human readable form.
type textRenderer interface {
	RenderText(w io.Writer)
}

// PrintResult outputs data in the format selected by --output.
func PrintResult(cmd *cobra.Command, data any) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil || cliCtx.OutputFormat == OutputJSON {
		return printJSON(cmd.OutOrStdout(), data)
	}
	return printText(cmd.OutOrStdout(), data)
}

func printJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(w io.Writer, data any) error {
	switch v := data.(type) {
	case textRenderer:
		v.RenderText(w)
	case string:
		fmt.Fprintln(w, v)
	case fmt.Stringer:
		fmt.Fprintln(w, v.String())
	default:
		fmt.Fprintf(w, "%+v\n", v)
	}
	return nil
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		msg := strings.TrimPrefix(err.Error(), "["+string(code)+"] ")
		fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %s\n", code, msg)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			if i == len(headers)-1 {
				sb.WriteString(val)
				continue
			}
			sb.WriteString(padRight(val, widths[i]))
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
