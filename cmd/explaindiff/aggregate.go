package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-trace-explainability-case/internal/app"
	"github.com/awmpietro/golang-trace-explainability-case/internal/coverage"
	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
)

var aggregateFlags struct {
	pairs    string
	matrix   string
	reports  []string
	out      string
	workers  int
	reset    []string
	catalog  string
	coerce   []string
	json     bool
	markdown bool
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate [run...]",
	Short: "Build or update the coverage matrix from run pairs and saved reports",
	Long: `Build or update the coverage matrix.

Runs given as arguments are compared pairwise (--pairs all or baseline).
Reports written by 'explaindiff diff -o' can be folded in with --reports.
With --matrix the existing matrix is loaded first and, unless --out says
otherwise, updated in place. Entries only ever grow; --reset clears the
named variables (or everything, with --reset '*') before merging.`,
	RunE: runAggregate,
}

func init() {
	f := aggregateCmd.Flags()
	f.StringVar(&aggregateFlags.pairs, "pairs", string(app.PairsAll), "Pairs to compare: all or baseline (first run against the rest)")
	f.StringVar(&aggregateFlags.matrix, "matrix", "", "Existing matrix JSON to update")
	f.StringSliceVar(&aggregateFlags.reports, "reports", nil, "Saved report JSON files to fold in")
	f.StringVar(&aggregateFlags.out, "out", "", "Where to write the matrix (default: --matrix)")
	f.IntVar(&aggregateFlags.workers, "workers", 0, "Pairs compared concurrently (default: $AUDIT_WORKERS)")
	f.StringSliceVar(&aggregateFlags.reset, "reset", nil, "Variables to clear before merging; '*' clears all")
	f.StringVar(&aggregateFlags.catalog, "catalog", "", "Decision-point catalog (DOT)")
	f.StringSliceVar(&aggregateFlags.coerce, "coerce", nil, "Fields coerced to integers")
	f.BoolVar(&aggregateFlags.json, "json", false, "Print the matrix and pair outcomes as JSON")
	f.BoolVar(&aggregateFlags.markdown, "markdown", false, "Render tables as Markdown")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return fmt.Errorf("aggregate needs at least two runs, got 1")
	}
	if len(args) == 0 && len(aggregateFlags.reports) == 0 && aggregateFlags.matrix == "" {
		return fmt.Errorf("nothing to aggregate: pass runs, --reports or --matrix")
	}

	m := coverage.Matrix{}
	if aggregateFlags.matrix != "" {
		loaded, err := coverage.Load(aggregateFlags.matrix)
		if err != nil {
			return err
		}
		m = loaded
	}
	if len(aggregateFlags.reset) > 0 {
		if aggregateFlags.reset[0] == "*" {
			m = coverage.Reset(m)
		} else {
			m = coverage.Reset(m, aggregateFlags.reset...)
		}
	}

	var outcomes []app.PairOutcome
	if len(args) > 0 {
		opts, err := compareOptions(aggregateFlags.catalog, aggregateFlags.coerce)
		if err != nil {
			return err
		}
		if aggregateFlags.workers > 0 {
			env.rt.Workers = aggregateFlags.workers
		}
		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := svc.Aggregate(cmd.Context(), args, app.PairMode(aggregateFlags.pairs), opts)
		if err != nil {
			return err
		}
		m = coverage.Merge(m, res.Matrix)
		outcomes = append(outcomes, res.Pairs...)
	}

	for _, path := range aggregateFlags.reports {
		rs, err := report.Read(path)
		if err != nil {
			return err
		}
		partial, outs := app.AggregateReports(rs)
		m = coverage.Merge(m, partial)
		outcomes = append(outcomes, outs...)
	}

	dest := aggregateFlags.out
	if dest == "" {
		dest = aggregateFlags.matrix
	}
	if dest != "" {
		if err := coverage.Save(dest, m); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if aggregateFlags.json {
		return report.WriteJSON(out, app.AggregateResult{Matrix: m, Pairs: outcomes})
	}
	mode := outputMode(aggregateFlags.markdown)
	if len(outcomes) > 0 {
		if err := writePairs(out, outcomes, mode); err != nil {
			return err
		}
	}
	return report.WriteMatrix(out, m, mode)
}

func writePairs(w io.Writer, outcomes []app.PairOutcome, mode report.Mode) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Pairs")
	t.AppendHeader(table.Row{"Run A", "Run B", "Judgment", "Variables", "Note"})
	for _, o := range outcomes {
		row := table.Row{o.A, o.B, "", "", ""}
		switch {
		case o.Error != "":
			row[4] = "failed: " + o.Error
		case o.Report != nil:
			row[2] = o.Report.Judgment
			row[3] = strings.Join(o.Report.Variables, ", ")
			if len(o.Confounded) > 0 {
				row[4] = "confounded"
			} else if len(o.Report.Variables) == 0 {
				row[4] = "identical config"
			}
		}
		t.AppendRow(row)
	}
	rendered := t.Render()
	if mode == report.Markdown {
		rendered = t.RenderMarkdown()
	}
	_, err := fmt.Fprintln(w, rendered)
	return err
}
