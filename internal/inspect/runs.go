package inspect

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
)

type RunRow struct {
	Run         string `json:"run"`
	Format      string `json:"format"`
	Order       string `json:"order"`
	TraceSchema string `json:"trace_schema"`
	NormVersion string `json:"normalize_version"`
	Provenance  string `json:"provenance"`
}

const provenanceWidth = 40

// ListRuns returns one row per run directory under dir, read from the
// manifest when there is one and from the run itself otherwise. Hidden
// directories are skipped.
func ListRuns(dir string) ([]RunRow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list runs in %s: %w", dir, err)
	}

	var rows []RunRow
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		rows = append(rows, describeRun(filepath.Join(dir, e.Name())))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Run < rows[j].Run })
	return rows, nil
}

func describeRun(path string) RunRow {
	row := RunRow{Run: filepath.Base(path), Format: "-", Order: "-", TraceSchema: "no manifest", NormVersion: "-", Provenance: "-"}

	docs, err := artifact.ReadDocuments(path)
	if err != nil {
		return row
	}

	var cfg artifact.Config
	if docs.Manifest != nil {
		if m, err := artifact.ParseManifest(docs.Manifest); err == nil {
			cfg = m.Config
			row.TraceSchema = orDefault(m.TraceSchemaVersion, "unknown")
			row.NormVersion = orDefault(m.NormalizeOutputVersion, "unknown")
			if m.InputProvenance != "" {
				row.Provenance = truncate(m.InputProvenance, provenanceWidth)
			}
		}
	}
	if cfg == nil {
		if run, err := artifact.DecodeRun(path, docs); err == nil {
			cfg = run.Config
		}
	}

	if v, ok := cfg.Get(artifact.VarFormat); ok {
		row.Format = plain(v)
	}
	if v, ok := cfg.Get(artifact.VarOrder); ok {
		row.Order = plain(v)
	}
	return row
}

func plain(v artifact.Value) string {
	if v.Kind() == artifact.KindString {
		return v.AsString()
	}
	return v.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func WriteRuns(w io.Writer, rows []RunRow) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Format", "Order", "Trace schema", "Norm version", "Provenance"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Run, r.Format, r.Order, r.TraceSchema, r.NormVersion, r.Provenance})
	}
	if len(rows) == 0 {
		t.AppendRow(table.Row{"no runs found", "", "", "", "", ""})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func WriteProfile(w io.Writer, p Profile) error {
	head := table.NewWriter()
	head.SetStyle(table.StyleLight)
	head.AppendRows([]table.Row{
		{"Run", p.RunID},
		{"Location", p.Location},
		{"Records", p.Records},
		{"Ordering", p.Ordering},
		{"Trace events", p.TraceEvents},
	})
	if _, err := fmt.Fprintln(w, head.Render()); err != nil {
		return err
	}

	fields := table.NewWriter()
	fields.SetStyle(table.StyleLight)
	fields.SetTitle("Fields")
	fields.AppendHeader(table.Row{"Field", "Types", "Numeric strings"})
	for _, f := range p.Fields {
		types := make([]string, 0, len(f.Types))
		for t, n := range f.Types {
			types = append(types, fmt.Sprintf("%s=%d", t, n))
		}
		sort.Strings(types)
		numeric := ""
		if f.NumericStrings > 0 {
			numeric = fmt.Sprintf("%d/%d", f.NumericStrings, f.Total)
		}
		fields.AppendRow(table.Row{f.Field, strings.Join(types, ", "), numeric})
	}
	if _, err := fmt.Fprintln(w, fields.Render()); err != nil {
		return err
	}

	inv := table.NewWriter()
	inv.SetStyle(table.StyleLight)
	inv.SetTitle("Trace inventory")
	inv.AppendHeader(table.Row{"Source", "Event", "Count"})
	for _, e := range p.Inventory {
		inv.AppendRow(table.Row{e.Source, e.Event, e.Count})
	}
	_, err := fmt.Fprintln(w, inv.Render())
	return err
}
