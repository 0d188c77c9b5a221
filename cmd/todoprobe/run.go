package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
	"github.com/gotrs-io/todomvc-e2e/internal/probe"
	"github.com/gotrs-io/todomvc-e2e/internal/results"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scenario catalog once against the target",
	Long: `Run drives a browser through the scenario catalog once and exits
non-zero when any scenario fails. Use --suite to narrow the catalog with
case-insensitive "Suite/Name" substrings.`,
	RunE: runOnce,
}

var (
	suiteFlags    []string
	fixturesFlag  string
	saveFlag      bool
	runTimeout    time.Duration
	showStepsFlag bool
)

func init() {
	runCmd.Flags().StringSliceVar(&suiteFlags, "suite", nil, "Only run scenarios matching this pattern (repeatable)")
	runCmd.Flags().StringVar(&fixturesFlag, "fixtures", "", "YAML file with titles and storage key")
	runCmd.Flags().BoolVar(&saveFlag, "save", false, "Persist the run to the results database")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Abort the run after this long (default probe.timeout)")
	runCmd.Flags().BoolVar(&showStepsFlag, "steps", false, "Print the steps of failed scenarios")
}

// consoleObserver prints progress as the scheduler reports it.
type consoleObserver struct {
	out       io.Writer
	showSteps bool
}

func (o consoleObserver) RunStarted(run models.Run) {
	fmt.Fprintf(o.out, "%s %s\n", color.CyanString("▶"), run.BaseURL)
}

func (o consoleObserver) ScenarioFinished(_ string, res models.ScenarioResult) {
	switch res.Status {
	case models.StatusPassed:
		fmt.Fprintf(o.out, "  %s %s %s\n", color.GreenString("✓"), res.FullName(), color.HiBlackString("(%dms)", res.DurationMS))
	case models.StatusFailed:
		fmt.Fprintf(o.out, "  %s %s\n", color.RedString("✗"), res.FullName())
		fmt.Fprintf(o.out, "      %s\n", strings.ReplaceAll(res.Error, "\n", "\n      "))
		if o.showSteps {
			for _, step := range res.Steps {
				fmt.Fprintf(o.out, "      %s %s\n", color.HiBlackString("·"), step)
			}
		}
	default:
		fmt.Fprintf(o.out, "  %s %s\n", color.YellowString("-"), res.FullName())
	}
}

func (o consoleObserver) RunFinished(run models.Run) {
	summary := fmt.Sprintf("%d passed, %d failed, %d skipped in %s",
		run.Passed, run.Failed, run.Skipped, run.Duration().Round(time.Millisecond))
	if run.Status == models.StatusPassed {
		fmt.Fprintln(o.out, color.GreenString(summary))
	} else {
		fmt.Fprintln(o.out, color.RedString(summary))
	}
	if run.Error != "" {
		fmt.Fprintln(o.out, color.RedString(run.Error))
	}
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fx, err := loadFixtures(cfg, fixturesFlag)
	if err != nil {
		return err
	}

	timeout := cfg.Probe.Timeout
	if runTimeout > 0 {
		timeout = runTimeout
	}

	session, err := startBrowser(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	opts := []probe.Option{
		probe.WithLogger(logger),
		probe.WithJobs([]*models.ProbeJob{{
			Name:           "cli",
			Slug:           probe.DefaultJobSlug,
			Schedule:       cfg.Probe.Schedule,
			TimeoutSeconds: int(timeout / time.Second),
			Suites:         suiteFlags,
		}}),
		probe.WithObserver(consoleObserver{out: cmd.OutOrStdout(), showSteps: showStepsFlag || cfg.Logging.Steps}),
	}
	if saveFlag {
		repo, err := results.Open(cfg.Results.Driver, cfg.Results.DSN)
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.Migrate(cmd.Context()); err != nil {
			return err
		}
		opts = append(opts, probe.WithStore(repo))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := newExecutor(cfg.Target.BaseURL, fx, pageFactory(session, cfg.Browser.ScreenshotDir))
	svc := probe.NewService(cfg.Target.BaseURL, exec, opts...)
	run, err := svc.RunNow(ctx, probe.DefaultJobSlug, probe.TriggerManual)
	if err != nil {
		return err
	}
	if saveFlag {
		fmt.Fprintf(cmd.OutOrStdout(), "saved run %s\n", run.ID)
	}
	if run.Status != models.StatusPassed {
		if run.Error != "" {
			return fmt.Errorf("run failed: %s", run.Error)
		}
		return fmt.Errorf("%d of %d scenarios failed", run.Failed, len(run.Results))
	}
	return nil
}
