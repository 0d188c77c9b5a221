package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gotrs-io/todomvc-e2e/internal/config"
	"github.com/gotrs-io/todomvc-e2e/internal/fixtures"
	"github.com/gotrs-io/todomvc-e2e/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "todoprobe",
	Short: "End-to-end checks and synthetic monitoring for TodoMVC apps",
	Long: `todoprobe drives a real browser through the TodoMVC scenario catalog.

Run it once from CI with "todoprobe run", or keep it running with
"todoprobe serve" to probe a deployment on a schedule and expose the
results over HTTP and Prometheus.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColorFlag {
			color.NoColor = true
		}
		return nil
	},
}

var (
	configDirFlag string
	baseURLFlag   string
	noColorFlag   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "./configs", "Directory holding todoprobe.yaml")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Override target.base_url")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(versionCmd)
}

var logger = log.New(os.Stderr, "", log.LstdFlags)

// loadConfig reads the configuration, applies flag overrides and rejects
// invalid settings. Warnings are logged.
func loadConfig() (*config.Config, error) {
	if err := config.Load(configDirFlag); err != nil {
		return nil, err
	}
	cfg := *config.Get()
	if baseURLFlag != "" {
		cfg.Target.BaseURL = baseURLFlag
	}
	if !cfg.Logging.Color {
		color.NoColor = true
	}
	warnings, err := config.Validate(&cfg)
	for _, w := range warnings {
		logger.Printf("[config] warning: %s", w)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFixtures(cfg *config.Config, override string) (fixtures.Fixtures, error) {
	path := cfg.Fixtures.Path
	if override != "" {
		path = override
	}
	if path == "" {
		return fixtures.Default(), nil
	}
	fx, err := fixtures.Load(path)
	if err != nil {
		return fixtures.Fixtures{}, fmt.Errorf("failed to load fixtures: %w", err)
	}
	return fx, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}
