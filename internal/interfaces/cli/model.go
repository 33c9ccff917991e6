package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/ForestRights-DSS/internal/bootstrap"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the decision models",
		Long:  "Initialise, train, reset and inspect the persisted model generation.",
	}
	cmd.AddCommand(
		newModelInitCmd(),
		newModelTrainCmd(),
		newModelResetCmd(),
		newModelStatusCmd(),
	)
	return cmd
}

func newModelInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Load or train the models, then run a smoke-test analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cliCtx, err := GetCLIContext(cmd); err == nil && cliCtx.Server != "" {
				return errors.New(errors.ErrCodeBadRequest, "model init works on the local model store and does not support --server")
			}
			return withApp(cmd, func(_ *CLIContext, app Application) error {
				report, err := app.Initialize(cmd.Context())
				if err != nil {
					return err
				}
				return PrintResult(cmd, initView{report})
			})
		},
	}
}

func newModelTrainCmd() *cobra.Command {
	var corpusSize int

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a new generation and persist it",
		Long: "Train a new generation from a fresh synthetic corpus and persist it,\n" +
			"replacing the stored one. Without --corpus-size the configured size is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("corpus-size") {
				if err := validateCorpusSize(corpusSize); err != nil {
					return err
				}
			}
			api, err := remoteFor(cmd)
			if err != nil {
				return err
			}
			if api != nil {
				meta, err := api.Models().Train(cmd.Context(), corpusSize)
				if err != nil {
					return err
				}
				return PrintResult(cmd, generationView{Action: "trained", Meta: meta})
			}
			return withApp(cmd, func(_ *CLIContext, app Application) error {
				meta, err := app.Models().TrainAll(cmd.Context(), corpusSize)
				if err != nil {
					return err
				}
				return PrintResult(cmd, generationView{Action: "trained", Meta: meta})
			})
		},
	}
	cmd.Flags().IntVar(&corpusSize, "corpus-size", 0, "number of synthetic training examples (default: models.corpus_size)")
	return cmd
}

func newModelResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the persisted models and retrain from scratch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := remoteFor(cmd)
			if err != nil {
				return err
			}
			if api != nil {
				meta, err := api.Models().Reset(cmd.Context())
				if err != nil {
					return err
				}
				return PrintResult(cmd, generationView{Action: "reset", Meta: meta})
			}
			return withApp(cmd, func(_ *CLIContext, app Application) error {
				meta, err := app.Models().Reset(cmd.Context())
				if err != nil {
					return err
				}
				return PrintResult(cmd, generationView{Action: "reset", Meta: meta})
			})
		},
	}
}

func newModelStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted generation without training",
		Long: "Show the persisted generation. Nothing is trained: when no generation\n" +
			"is stored the state stays empty.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := remoteFor(cmd)
			if err != nil {
				return err
			}
			if api != nil {
				st, err := api.Models().Status(cmd.Context())
				if err != nil {
					return err
				}
				return PrintResult(cmd, statusView(*st))
			}
			return withApp(cmd, func(cliCtx *CLIContext, app Application) error {
				if _, err := app.Models().Load(cmd.Context()); err != nil {
					cliCtx.Logger.Debug("persisted models unusable", logging.Err(err))
				}
				return PrintResult(cmd, statusView(app.Models().Status()))
			})
		},
	}
}

func validateCorpusSize(n int) error {
	if n < claim_dss.MinCorpusSize || n > claim_dss.MaxCorpusSize {
		return errors.Newf(errors.ErrCodeInvalidCorpusRequest,
			"corpus size must be between %d and %d, got %d", claim_dss.MinCorpusSize, claim_dss.MaxCorpusSize, n)
	}
	return nil
}

type generationView struct {
	Action string                    `json:"status"`
	Meta   *claim_dss.GenerationMeta `json:"data"`
}

func (v generationView) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Models %s: generation %s\n", v.Action, v.Meta.ID)
	writeMeta(w, v.Meta)
}

type statusView claim_dss.ModelStatus

func (v statusView) RenderText(w io.Writer) {
	fmt.Fprintf(w, "State:          %s\n", v.State)
	fmt.Fprintf(w, "Ready:          %t\n", v.Ready)
	if v.Generation != nil {
		fmt.Fprintf(w, "Generation:     %s\n", v.Generation.ID)
		writeMeta(w, v.Generation)
		fmt.Fprintf(w, "Reference size: %d\n", v.ReferenceSize)
	}
	if v.LastError != "" {
		fmt.Fprintf(w, "Last error:     %s\n", v.LastError)
	}
}

type initView struct {
	*bootstrap.InitReport
}

func (v initView) RenderText(w io.Writer) {
	source := "trained"
	if v.Loaded {
		source = "loaded from store"
	}
	fmt.Fprintf(w, "Models %s.\n", source)
	statusView(v.Status).RenderText(w)
	if v.SmokeTest != nil {
		fmt.Fprintf(w, "Smoke test:     %s, risk %s\n", v.SmokeTest.RecommendedAction, v.SmokeTest.RiskLevel)
	}
}

func writeMeta(w io.Writer, m *claim_dss.GenerationMeta) {
	fmt.Fprintf(w, "Trained at:     %s\n", m.TrainedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Corpus size:    %d (seed %d)\n", m.CorpusSize, m.Seed)
	fmt.Fprintf(w, "Features:       %d (%s)\n", len(m.FeatureColumns), abbreviate(m.FeatureColumns, 4))
}

func abbreviate(items []string, n int) string {
	if len(items) <= n {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s, ... %d more", strings.Join(items[:n], ", "), len(items)-n)
}
