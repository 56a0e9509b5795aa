package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/coverage"
	"github.com/awmpietro/golang-trace-explainability-case/internal/diff"
	"github.com/awmpietro/golang-trace-explainability-case/internal/judge"
)

type Mode int

const (
	ASCII Mode = iota
	Markdown
)

// maxListed bounds the per-section rows in a summary; the JSON report is
// never truncated.
const maxListed = 20

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func render(w io.Writer, t table.Writer, mode Mode) error {
	var out string
	if mode == Markdown {
		out = t.RenderMarkdown()
	} else {
		out = t.Render()
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

// WriteSummary prints a human-readable view of r. Warnings are always listed,
// whatever the judgment.
func WriteSummary(w io.Writer, r *Report, mode Mode) error {
	head := newTable("")
	head.AppendRows([]table.Row{
		{"Run A", describe(r.RunA)},
		{"Run B", describe(r.RunB)},
		{"Variables", orNone(strings.Join(r.Variables, ", "))},
		{"Judgment", r.Judgment},
	})
	head.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 100}})
	if err := render(w, head, mode); err != nil {
		return err
	}

	for _, reason := range r.Reasons {
		if _, err := fmt.Fprintf(w, "  - %s\n", reason); err != nil {
			return err
		}
	}

	if !r.OutputDiff.Empty() {
		if err := render(w, sequenceTable("Output differences", r.OutputDiff.Sequence), mode); err != nil {
			return err
		}
	}
	if !r.TraceDiff.Empty() {
		if err := render(w, sequenceTable("Trace differences", r.TraceDiff.Sequence), mode); err != nil {
			return err
		}
	}

	if len(r.Findings) > 0 {
		t := newTable("Findings")
		t.AppendHeader(table.Row{"Kind", "Run", "Variable", "Point", "Message"})
		for _, f := range r.Findings {
			t.AppendRow(table.Row{f.Kind, f.Run, f.Variable, f.Point, f.Message})
		}
		if err := render(w, t, mode); err != nil {
			return err
		}
	}

	warnings := newTable(fmt.Sprintf("Warnings (%d)", len(r.Warnings)))
	warnings.AppendHeader(table.Row{"Kind", "Run", "Index", "Field", "Message"})
	for _, ws := range r.Warnings {
		warnings.AppendRow(table.Row{ws.Kind, ws.Run, ws.Index, ws.Field, ws.Message})
	}
	if len(r.Warnings) == 0 {
		warnings.AppendRow(table.Row{"none", "", "", "", ""})
	}
	return render(w, warnings, mode)
}

func sequenceTable(title string, s diff.Sequence) table.Writer {
	t := newTable(title)
	t.AppendHeader(table.Row{"Index", "Change", "Field", "A", "B"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})

	rows := 0
	for _, e := range s.Entries {
		if rows >= maxListed {
			break
		}
		t.AppendRow(table.Row{e.Index, e.Kind, "", "", e.Entry.Canonical()})
		rows++
	}
	for _, m := range s.Moves {
		if rows >= maxListed {
			break
		}
		t.AppendRow(table.Row{m.From, "moved", "", fmt.Sprintf("@%d", m.From), fmt.Sprintf("@%d", m.To)})
		rows++
	}
	for _, f := range s.Fields {
		if rows >= maxListed {
			break
		}
		t.AppendRow(table.Row{f.Index, f.Kind, f.Field, show(f.A, f.TypeA), show(f.B, f.TypeB)})
		rows++
	}
	total := len(s.Entries) + len(s.Moves) + len(s.Fields)
	if total > rows {
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d more", total-rows), "", "", ""})
	}
	return t
}

// WriteMatrix prints one row per variable.
func WriteMatrix(w io.Writer, m coverage.Matrix, mode Mode) error {
	t := newTable("Coverage")
	header := table.Row{"Variable", "Classification", "Results", "Traces"}
	for _, j := range judge.All {
		header = append(header, j)
	}
	header = append(header, "Evidence")
	t.AppendHeader(header)

	for _, name := range m.Variables() {
		e := m[name]
		row := table.Row{name, e.Classification(), e.InResults, e.InTraces}
		for _, j := range judge.All {
			row = append(row, e.Judgments[j])
		}
		row = append(row, len(e.Evidence))
		t.AppendRow(row)
	}
	return render(w, t, mode)
}

func describe(r RunRef) string {
	if r.Label != "" {
		return fmt.Sprintf("%s (%s) %s", r.ID, r.Label, r.Location)
	}
	return fmt.Sprintf("%s %s", r.ID, r.Location)
}

func show(v *artifact.Value, typ string) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", v, typ)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
