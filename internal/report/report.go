// Package report renders run history for humans: a markdown summary, the
// same summary as sanitized HTML, and a spreadsheet export.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
	"github.com/xeonx/timeago"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

const summaryTemplate = `{% autoescape off %}# TodoMVC probe report

Generated {{ generated }}.
{% if runs %}
| Run | Target | Trigger | Status | Passed | Failed | Skipped | Duration | Started |
|---|---|---|---|---|---|---|---|---|
{% for run in runs %}| {{ run.ShortID }} | {{ run.BaseURL }} | {{ run.Trigger }} | {{ run.Badge }} | {{ run.Passed }} | {{ run.Failed }} | {{ run.Skipped }} | {{ run.Duration }} | {{ run.Ago }} |
{% endfor %}{% for run in runs %}{% if run.Failures %}
## Failures in {{ run.ShortID }}
{% for f in run.Failures %}
- **{{ f.Name }}**: {{ f.Error }}{% endfor %}
{% endif %}{% endfor %}{% else %}
No runs recorded yet.
{% endif %}{% endautoescape %}`

var summary = pongo2.Must(pongo2.FromString(summaryTemplate))

type runView struct {
	ShortID  string
	BaseURL  string
	Trigger  string
	Badge    string
	Passed   int
	Failed   int
	Skipped  int
	Duration string
	Ago      string
	Failures []failureView
}

type failureView struct {
	Name  string
	Error string
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func badge(status string) string {
	switch status {
	case models.StatusPassed:
		return "✅ passed"
	case models.StatusFailed:
		return "❌ failed"
	default:
		return status
	}
}

// markdown table cells cannot hold pipes or newlines
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}

func views(runs []models.Run, now time.Time) []runView {
	out := make([]runView, 0, len(runs))
	for i := range runs {
		run := &runs[i]
		v := runView{
			ShortID:  shortID(run.ID),
			BaseURL:  cell(run.BaseURL),
			Trigger:  run.Trigger,
			Badge:    badge(run.Status),
			Passed:   run.Passed,
			Failed:   run.Failed,
			Skipped:  run.Skipped,
			Duration: run.Duration().Round(time.Millisecond).String(),
			Ago:      timeago.English.FormatReference(run.StartedAt, now),
		}
		if run.Error != "" {
			v.Failures = append(v.Failures, failureView{Name: "run", Error: cell(run.Error)})
		}
		for _, res := range run.Results {
			if res.Status == models.StatusFailed {
				v.Failures = append(v.Failures, failureView{Name: cell(res.FullName()), Error: cell(res.Error)})
			}
		}
		out = append(out, v)
	}
	return out
}

// Markdown renders the runs, newest first as given, relative to now.
func Markdown(runs []models.Run, now time.Time) (string, error) {
	out, err := summary.Execute(pongo2.Context{
		"generated": now.UTC().Format(time.RFC3339),
		"runs":      views(runs, now),
	})
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

// HTML renders the markdown report and strips anything a UGC policy would
// not allow. Run errors come from the page under test and are untrusted.
func HTML(runs []models.Run, now time.Time) (string, error) {
	md, err := Markdown(runs, now)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("convert report: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

// Page wraps the HTML report in a minimal document.
func Page(runs []models.Run, now time.Time) (string, error) {
	body, err := HTML(runs, now)
	if err != nil {
		return "", err
	}
	return "<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>TodoMVC probe report</title></head><body>\n" +
		body + "</body></html>\n", nil
}
