package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
)

var importCmd = &cobra.Command{
	Use:   "import <run-dir...>",
	Short: "Copy run directories into the SQLite store",
	Long: `Copy run directories into the SQLite store given by --db.

Each run is stored under its directory name; importing the same name again
replaces it. Use --store sqlite on other commands to read from the store.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	st, err := artifact.OpenSQLite(env.rt.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, dir := range args {
		run, err := st.Import(cmd.Context(), dir)
		if err != nil {
			return artifactFailure(err)
		}
		env.logger.Info("run imported", zap.String("run_id", run.ID), zap.String("location", dir))
	}

	stored, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(env.rt.DB)
	t.AppendHeader(table.Row{"Run", "Label", "Location", "Imported"})
	for _, r := range stored {
		t.AppendRow(table.Row{r.ID, r.Label, r.Location, r.ImportedAt})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return err
}
