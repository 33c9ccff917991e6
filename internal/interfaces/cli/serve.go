package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/ForestRights-DSS/internal/config"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: "Serve the claim analysis API until SIGINT or SIGTERM. With models.warm_up\n" +
			"set, models are loaded or trained in the background at start; otherwise\n" +
			"the first analysis request triggers it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(cliCtx *CLIContext, app Application) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if cliCtx.ConfigPath != "" {
					watchLogLevel(cliCtx)
				}
				cliCtx.Logger.Info("starting fradss API server",
					logging.String("version", Version),
					logging.String("addr", cliCtx.Config.Server.Addr()),
					logging.String("models_backend", cliCtx.Config.Models.Backend))

				if err := app.Run(ctx); err != nil {
					return err
				}
				cliCtx.Logger.Info("server stopped")
				return nil
			})
		},
	}
}

// watchLogLevel applies log level edits of the config file without a
// restart. Other settings only take effect on the next start.
func watchLogLevel(cliCtx *CLIContext) {
	config.Watch(cliCtx.ConfigPath, func(cfg *config.Config) {
		if logging.SetLevel(cliCtx.Logger, cfg.Log.Level) {
			cliCtx.Logger.Info("log level changed", logging.String("level", cfg.Log.Level))
		}
	}, func(err error) {
		cliCtx.Logger.Warn("ignoring invalid config change", logging.Err(err))
	})
}
