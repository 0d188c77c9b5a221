package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

const (
	RunsSheet      = "Runs"
	ScenariosSheet = "Scenarios"
)

var (
	runHeader      = []any{"Run", "Target", "Trigger", "Status", "Passed", "Failed", "Skipped", "Started", "Duration (ms)", "Error"}
	scenarioHeader = []any{"Run", "Suite", "Scenario", "Status", "Duration (ms)", "Error"}
)

// WriteXLSX exports the runs and their scenario results as a workbook.
func WriteXLSX(w io.Writer, runs []models.Run) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RunsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(ScenariosSheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(RunsSheet, "A1", &runHeader); err != nil {
		return err
	}
	if err := f.SetSheetRow(ScenariosSheet, "A1", &scenarioHeader); err != nil {
		return err
	}

	scenarioRow := 2
	for i := range runs {
		run := &runs[i]
		row := []any{
			run.ID, run.BaseURL, run.Trigger, run.Status,
			run.Passed, run.Failed, run.Skipped,
			run.StartedAt.UTC().Format(time.RFC3339),
			run.Duration().Milliseconds(), run.Error,
		}
		if err := f.SetSheetRow(RunsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
		for _, res := range run.Results {
			row := []any{run.ID, res.Suite, res.Name, res.Status, res.DurationMS, res.Error}
			if err := f.SetSheetRow(ScenariosSheet, fmt.Sprintf("A%d", scenarioRow), &row); err != nil {
				return err
			}
			scenarioRow++
		}
	}

	if err := f.SetPanes(RunsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}
