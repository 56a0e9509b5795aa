package main

import (
	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-trace-explainability-case/internal/app"
	"github.com/awmpietro/golang-trace-explainability-case/internal/inspect"
	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
)

var inspectFlags struct {
	json bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <run>",
	Short: "Profile one run: field types, numeric strings, ordering and trace inventory",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectFlags.json, "json", false, "Print the profile as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	loader, closeLoader, err := app.OpenLoader(env.rt)
	if err != nil {
		return err
	}
	defer closeLoader()

	run, err := loader.Load(cmd.Context(), args[0])
	if err != nil {
		return artifactFailure(err)
	}

	p := inspect.Probe(run)
	if inspectFlags.json {
		return report.WriteJSON(cmd.OutOrStdout(), p)
	}
	return inspect.WriteProfile(cmd.OutOrStdout(), p)
}
