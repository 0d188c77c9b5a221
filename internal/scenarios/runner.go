package scenarios

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
	"github.com/gotrs-io/todomvc-e2e/internal/fixtures"
	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

// PageFactory opens an isolated page (fresh storage) for one scenario. The
// returned release func is called with whether the scenario failed.
type PageFactory func(ctx context.Context, scenario string) (browser.Page, func(failed bool), error)

// Runner executes suites one scenario at a time.
type Runner struct {
	NewPage  PageFactory
	BaseURL  string
	Fixtures fixtures.Fixtures
	Logger   *log.Logger
	// OnResult, when set, is called after every scenario.
	OnResult func(models.ScenarioResult)

	now func() time.Time
}

// NewRunner returns a runner with default fixtures and logger.
func NewRunner(newPage PageFactory, baseURL string) *Runner {
	return &Runner{
		NewPage:  newPage,
		BaseURL:  baseURL,
		Fixtures: fixtures.Default(),
		Logger:   log.Default(),
	}
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// Run executes every scenario in order. Scenarios left when ctx is
// cancelled are reported as skipped.
func (r *Runner) Run(ctx context.Context, suites []Suite) []models.ScenarioResult {
	var results []models.ScenarioResult
	for _, suite := range suites {
		for _, sc := range suite.Scenarios {
			var res models.ScenarioResult
			if ctx.Err() != nil {
				res = models.ScenarioResult{
					Suite:  suite.Name,
					Name:   sc.Name,
					Status: models.StatusSkipped,
					Error:  ctx.Err().Error(),
				}
			} else {
				res = r.runOne(ctx, suite, sc)
			}
			results = append(results, res)
			if r.OnResult != nil {
				r.OnResult(res)
			}
		}
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, suite Suite, sc Scenario) (res models.ScenarioResult) {
	res = models.ScenarioResult{Suite: suite.Name, Name: sc.Name}
	start := r.clock()

	page, release, err := r.NewPage(ctx, res.FullName())
	if err != nil {
		res.Status = models.StatusFailed
		res.Error = fmt.Sprintf("failed to open page: %v", err)
		return res
	}
	env := NewEnv(page, r.BaseURL, r.Fixtures, r.logger())

	defer func() {
		if rec := recover(); rec != nil {
			r.logger().Printf("[scenarios] %s panicked: %v\n%s", res.FullName(), rec, debug.Stack())
			res.Status = models.StatusFailed
			res.Error = fmt.Sprintf("panic: %v", rec)
		}
		res.Steps = env.Steps()
		res.Duration = r.clock().Sub(start)
		res.DurationMS = res.Duration.Milliseconds()
		if release != nil {
			release(res.Status == models.StatusFailed)
		}
	}()

	err = runScenario(env, suite, sc)
	if err != nil {
		res.Status = models.StatusFailed
		res.Error = err.Error()
		r.logger().Printf("[scenarios] FAIL %s: %v", res.FullName(), err)
		return res
	}
	res.Status = models.StatusPassed
	r.logger().Printf("[scenarios] ok   %s", res.FullName())
	return res
}

func runScenario(env *Env, suite Suite, sc Scenario) error {
	if err := env.Goto(); err != nil {
		return err
	}
	if suite.BeforeEach != nil {
		if err := suite.BeforeEach(env); err != nil {
			return fmt.Errorf("beforeEach: %w", err)
		}
	}
	if err := sc.Run(env); err != nil {
		return err
	}
	if suite.AfterEach != nil {
		if err := suite.AfterEach(env); err != nil {
			return fmt.Errorf("afterEach: %w", err)
		}
	}
	return nil
}
