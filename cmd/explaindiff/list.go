package main

import (
	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-trace-explainability-case/internal/inspect"
	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
)

var listFlags struct {
	json bool
}

var listCmd = &cobra.Command{
	Use:   "list <runs-dir>",
	Short: "List the runs under a directory with their manifest details",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listFlags.json, "json", false, "Print rows as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	rows, err := inspect.ListRuns(args[0])
	if err != nil {
		return err
	}
	if listFlags.json {
		return report.WriteJSON(cmd.OutOrStdout(), rows)
	}
	return inspect.WriteRuns(cmd.OutOrStdout(), rows)
}
