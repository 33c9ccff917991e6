package cli

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

func newCorpusCmd() *cobra.Command {
	var (
		size    int
		seed    int64
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Export the synthetic training corpus as JSON lines",
		Long: "Write the synthetic corpus the trainer would use, one example per line,\n" +
			"including the decision score, risk score and processing time estimate.\n" +
			"The same size and seed always produce the same corpus.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateCorpusSize(size); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeInternal, "failed to create output file").WithDetail(outFile)
				}
				defer f.Close()
				out = f
			}

			w := bufio.NewWriter(out)
			enc := json.NewEncoder(w)
			for _, ex := range claim_dss.GenerateCorpus(size, seed) {
				if err := enc.Encode(ex); err != nil {
					return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode training example")
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&size, "size", claim_dss.DefaultCorpusSize, "number of examples")
	cmd.Flags().Int64Var(&seed, "seed", claim_dss.DefaultTrainingSeed, "generator seed")
	cmd.Flags().StringVar(&outFile, "file", "", "write to this file instead of stdout")
	return cmd
}
