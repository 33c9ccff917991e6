package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/pkg/client"
)

// clientLogger adapts the CLI logger to the API client.
type clientLogger struct {
	log logging.Logger
}

func (l clientLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l clientLogger) Infof(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l clientLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

// remoteClient returns a client for --server, or nil when the command should
// run against local models.
func remoteClient(cliCtx *CLIContext) (*client.Client, error) {
	if cliCtx.Server == "" {
		return nil, nil
	}
	return client.NewClient(cliCtx.Server,
		client.WithLogger(clientLogger{log: cliCtx.Logger.Named("client")}),
		client.WithUserAgent(fmt.Sprintf("fradss-cli/%s", Version)),
	)
}

// remoteFor is remoteClient for the command's CLIContext.
func remoteFor(cmd *cobra.Command) (*client.Client, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	return remoteClient(cliCtx)
}
