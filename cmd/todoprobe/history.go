package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xeonx/timeago"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
	"github.com/gotrs-io/todomvc-e2e/internal/report"
	"github.com/gotrs-io/todomvc-e2e/internal/results"
	"github.com/gotrs-io/todomvc-e2e/internal/scenarios"
	"github.com/gotrs-io/todomvc-e2e/internal/version"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show stored runs, or the scenarios of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var (
	historyLimit    int
	markdownFlag    bool
	xlsxFlag        string
	scenariosFilter []string
	versionJSON     bool
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show")
	historyCmd.Flags().BoolVar(&markdownFlag, "markdown", false, "Print a markdown report instead of a table")
	historyCmd.Flags().StringVar(&xlsxFlag, "xlsx", "", "Write the runs to an Excel workbook at this path")

	scenariosCmd.Flags().StringSliceVar(&scenariosFilter, "suite", nil, "Only list scenarios matching this pattern (repeatable)")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print build information as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, err := results.Open(cfg.Results.Driver, cfg.Results.DSN)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.Migrate(cmd.Context()); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := repo.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printRun(out, run)
		return nil
	}

	runs, err := repo.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if xlsxFlag != "" {
		f, err := os.Create(xlsxFlag)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", xlsxFlag, err)
		}
		// results are loaded per run for the scenario sheet
		for i := range runs {
			full, err := repo.GetRun(cmd.Context(), runs[i].ID)
			if err != nil {
				f.Close()
				return err
			}
			runs[i] = *full
		}
		if err := report.WriteXLSX(f, runs); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d runs to %s\n", len(runs), xlsxFlag)
		return nil
	}

	if markdownFlag {
		md, err := report.Markdown(runs, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprint(out, md)
		return nil
	}

	printRuns(out, runs, time.Now())
	return nil
}

func statusText(status string) string {
	switch status {
	case models.StatusPassed:
		return color.GreenString(status)
	case models.StatusFailed:
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}

func printRuns(out io.Writer, runs []models.Run, now time.Time) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tTRIGGER\tSTATUS\tPASSED\tFAILED\tDURATION")
	for i := range runs {
		run := &runs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID, timeago.English.FormatReference(run.StartedAt, now), run.Trigger,
			statusText(run.Status), run.Passed, run.Failed, run.Duration().Round(time.Millisecond))
	}
	tw.Flush()
}

func printRun(out io.Writer, run *models.Run) {
	fmt.Fprintf(out, "%s  %s  %s  %s\n", run.ID, run.BaseURL, statusText(run.Status), run.StartedAt.Format(time.RFC3339))
	if run.Error != "" {
		fmt.Fprintln(out, color.RedString(run.Error))
	}
	for _, res := range run.Results {
		fmt.Fprintf(out, "  %-7s %s (%dms)\n", statusText(res.Status), res.FullName(), res.DurationMS)
		if res.Error != "" {
			fmt.Fprintf(out, "          %s\n", res.Error)
		}
	}
}

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the scenario catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range scenarios.Names(scenarios.Select(scenarios.Catalog(), scenariosFilter...)) {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(version.GetInfo())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "todoprobe %s\n", version.Full())
		return nil
	},
}
