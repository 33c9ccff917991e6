package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ForestRights-DSS/internal/application/analysis"
	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// documentFile is the --document input: OCR entities of the claim form.
type documentFile struct {
	Entities []claim.DocumentEntity `json:"entities"`
}

func newAnalyzeCmd() *cobra.Command {
	var claimPath, documentPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a claim read from a JSON file",
		Long: "Analyze a claim read from a JSON file (\"-\" reads stdin). Fields left out\n" +
			"take their defaults. With --document, recognised entities fill the\n" +
			"fields the claim file does not set.",
		Example: "  fradss analyze --claim claim.json\n" +
			"  fradss analyze --claim claim.json --document ocr.json -o json\n" +
			"  fradss analyze --claim - --server http://localhost:8000 < claim.json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in claim.Input
			if err := readJSON(cmd.InOrStdin(), claimPath, &in); err != nil {
				return err
			}
			var doc documentFile
			if documentPath != "" {
				if err := readJSON(cmd.InOrStdin(), documentPath, &doc); err != nil {
					return err
				}
			}

			api, err := remoteFor(cmd)
			if err != nil {
				return err
			}
			if api != nil {
				var res *analysis.AnalysisResult
				if documentPath != "" {
					res, err = api.Claims().AnalyzeWithDocument(cmd.Context(), in, doc.Entities)
				} else {
					res, err = api.Claims().Analyze(cmd.Context(), in)
				}
				if err != nil {
					return err
				}
				return PrintResult(cmd, analysisView{res})
			}

			var signals *claim.DocumentSignals
			if len(doc.Entities) > 0 {
				signals = claim.ExtractSignals(doc.Entities)
			}
			return withApp(cmd, func(_ *CLIContext, app Application) error {
				res, err := app.Analyzer().Analyze(cmd.Context(), in, signals)
				if err != nil {
					return err
				}
				return PrintResult(cmd, analysisView{res})
			})
		},
	}

	cmd.Flags().StringVar(&claimPath, "claim", "", "claim JSON file, - for stdin [REQUIRED]")
	cmd.Flags().StringVar(&documentPath, "document", "", "document entities JSON file")
	_ = cmd.MarkFlagRequired("claim")
	return cmd
}

// readJSON decodes the file at path, or stdin for "-", into dst. Unknown
// fields are rejected so that typos do not silently fall back to defaults.
func readJSON(stdin io.Reader, path string, dst any) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeBadRequest, "failed to open input file").WithDetail(path)
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode input file").WithDetail(path)
	}
	return nil
}

// analysisView prints an AnalysisResult as its JSON document or as a report.
type analysisView struct {
	*analysis.AnalysisResult
}

func (v analysisView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.AnalysisResult)
}

func (v analysisView) RenderText(w io.Writer) {
	r := v.AnalysisResult
	fmt.Fprintf(w, "Claim:          %s\n", r.ClaimID)
	fmt.Fprintf(w, "Recommendation: %s (confidence %.2f)\n", r.RecommendedAction, r.Confidence)
	fmt.Fprintf(w, "Risk:           %s (score %.2f)\n", r.RiskLevel, r.RiskScore)
	fmt.Fprintf(w, "Generation:     %s\n", r.ModelGeneration)

	fmt.Fprintln(w, "\nReasoning:")
	for _, line := range r.Reasoning {
		fmt.Fprintf(w, "  - %s\n", line)
	}

	if len(r.RiskFactors) > 0 {
		fmt.Fprintln(w, "\nRisk factors:")
		rows := make([][]string, 0, len(r.RiskFactors))
		for _, f := range r.RiskFactors {
			rows = append(rows, []string{f.Type, string(f.Severity), f.Description})
		}
		fmt.Fprint(w, indent(FormatTable([]string{"TYPE", "SEVERITY", "DESCRIPTION"}, rows)))
	}

	if len(r.PrecedentCases) > 0 {
		fmt.Fprintln(w, "\nPrecedents:")
		rows := make([][]string, 0, len(r.PrecedentCases))
		for _, c := range r.PrecedentCases {
			rows = append(rows, []string{c.ID, fmt.Sprintf("%.3f", c.Similarity), string(c.Outcome), c.State})
		}
		fmt.Fprint(w, indent(FormatTable([]string{"CASE", "SIMILARITY", "OUTCOME", "STATE"}, rows)))
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "\nwarning: %s\n", warning)
	}
}

func indent(s string) string {
	lines := strings.SplitAfter(s, "\n")
	var sb strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		sb.WriteString("  ")
		sb.WriteString(l)
	}
	return sb.String()
}
