package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-trace-explainability-case/internal/app"
	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
)

var diffFlags struct {
	json     bool
	markdown bool
	catalog  string
	coerce   []string
	out      string
}

var diffCmd = &cobra.Command{
	Use:   "diff <runA> <runB>",
	Short: "Compare two runs and judge whether the trace explains the output change",
	Long: `Compare two runs and judge whether the trace explains the output change.

Exit status is 0 when the traces explain every output difference (or there
is none), 1 when outputs differ without trace evidence, and 2 when a run
artifact could not be loaded.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	f := diffCmd.Flags()
	f.BoolVar(&diffFlags.json, "json", false, "Print the full JSON report instead of the summary")
	f.BoolVar(&diffFlags.markdown, "markdown", false, "Render the summary as Markdown tables")
	f.StringVar(&diffFlags.catalog, "catalog", "", "Decision-point catalog (DOT); overrides the profile catalog")
	f.StringSliceVar(&diffFlags.coerce, "coerce", nil, "Fields coerced to integers (default: profile or record_count,count)")
	f.StringVarP(&diffFlags.out, "output", "o", "", "Also write the JSON report to this file")
}

func runDiff(cmd *cobra.Command, args []string) error {
	opts, err := compareOptions(diffFlags.catalog, diffFlags.coerce)
	if err != nil {
		return err
	}

	svc, cleanup, err := newService()
	if err != nil {
		return err
	}
	defer cleanup()

	r, err := svc.CompareWith(cmd.Context(), args[0], args[1], opts)
	if err != nil {
		return artifactFailure(err)
	}

	if diffFlags.out != "" {
		var buf bytes.Buffer
		if err := report.WriteJSON(&buf, r); err != nil {
			return err
		}
		if err := os.WriteFile(diffFlags.out, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if diffFlags.json {
		err = report.WriteJSON(out, r)
	} else {
		err = report.WriteSummary(out, r, outputMode(diffFlags.markdown))
	}
	if err != nil {
		return err
	}

	if r.ExitCode != report.ExitExplained {
		return &exitError{code: r.ExitCode}
	}
	return nil
}

// compareOptions reads the catalog file, if any. An empty coerce list keeps
// the profile default.
func compareOptions(catalogPath string, coerce []string) (app.CompareOptions, error) {
	var opts app.CompareOptions
	if catalogPath != "" {
		dot, err := os.ReadFile(catalogPath)
		if err != nil {
			return opts, fmt.Errorf("read catalog: %w", err)
		}
		opts.CatalogDOT = string(dot)
	}
	if len(coerce) > 0 {
		opts.CoercibleFields = coerce
	}
	return opts, nil
}
