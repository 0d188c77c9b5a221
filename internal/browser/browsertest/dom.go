package browsertest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gotrs-io/todomvc-e2e/internal/browser"
)

// resolve evaluates a query against a parsed document the way the browser's
// locator engine does for the subset of selectors the harness uses.
func resolve(doc *goquery.Document, q browser.Query) *goquery.Selection {
	sel := doc.Selection
	for _, s := range q.Steps() {
		step := s
		switch step.Kind {
		case browser.StepCSS:
			sel = sel.Find(step.Value)
		case browser.StepRole:
			sel = sel.Find("*").FilterFunction(func(_ int, el *goquery.Selection) bool {
				if roleOf(el) != step.Value || !visible(el) {
					return false
				}
				return step.Name == "" || browser.MatchText(accessibleName(doc, el), step.Name, step.Exact)
			})
		case browser.StepPlaceholder:
			sel = sel.Find("[placeholder]").FilterFunction(func(_ int, el *goquery.Selection) bool {
				v, _ := el.Attr("placeholder")
				return browser.MatchText(v, step.Value, step.Exact)
			})
		case browser.StepLabel:
			sel = sel.Find("input, textarea, select, button").FilterFunction(func(_ int, el *goquery.Selection) bool {
				for _, label := range labelsOf(doc, el) {
					if browser.MatchText(label, step.Value, step.Exact) {
						return true
					}
				}
				return false
			})
		case browser.StepTestID:
			sel = sel.Find("[data-testid]").FilterFunction(func(_ int, el *goquery.Selection) bool {
				v, _ := el.Attr("data-testid")
				return v == step.Value
			})
		case browser.StepNth:
			sel = sel.Eq(step.Index)
		}
	}
	return sel
}

// roleOf returns the explicit role attribute or the implicit ARIA role of the tag.
func roleOf(el *goquery.Selection) string {
	if role, ok := el.Attr("role"); ok {
		return role
	}
	switch goquery.NodeName(el) {
	case "ul", "ol":
		return "list"
	case "li":
		return "listitem"
	case "button":
		return "button"
	case "a":
		if _, ok := el.Attr("href"); ok {
			return "link"
		}
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return "heading"
	case "textarea":
		return "textbox"
	case "input":
		typ, _ := el.Attr("type")
		switch strings.ToLower(typ) {
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		case "button", "submit", "reset":
			return "button"
		case "hidden":
			return ""
		default:
			return "textbox"
		}
	}
	return ""
}

// labelsOf collects aria-label, label[for=id] and wrapping label texts.
func labelsOf(doc *goquery.Document, el *goquery.Selection) []string {
	var out []string
	if v, ok := el.Attr("aria-label"); ok {
		out = append(out, v)
	}
	if id, ok := el.Attr("id"); ok && id != "" {
		doc.Find("label[for]").Each(func(_ int, l *goquery.Selection) {
			if f, _ := l.Attr("for"); f == id {
				out = append(out, l.Text())
			}
		})
	}
	if wrap := el.ParentsFiltered("label"); wrap.Length() > 0 {
		out = append(out, wrap.First().Text())
	}
	return out
}

func accessibleName(doc *goquery.Document, el *goquery.Selection) string {
	if labels := labelsOf(doc, el); len(labels) > 0 {
		return labels[0]
	}
	switch goquery.NodeName(el) {
	case "input", "textarea":
		v, _ := el.Attr("placeholder")
		return v
	}
	return el.Text()
}

// visible is false when the element or an ancestor carries the hidden attribute.
func visible(el *goquery.Selection) bool {
	if el.Length() == 0 {
		return false
	}
	if goquery.NodeName(el) == "input" {
		if typ, _ := el.Attr("type"); strings.EqualFold(typ, "hidden") {
			return false
		}
	}
	for n := el.Get(0); n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if a.Key == "hidden" {
				return false
			}
		}
	}
	return true
}

// innerText concatenates the text of visible descendants.
func innerText(el *goquery.Selection) string {
	if el.Length() == 0 {
		return ""
	}
	if !visible(el) {
		return el.Text()
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			for _, a := range n.Attr {
				if a.Key == "hidden" {
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(el.Get(0))
	return browser.NormalizeWhitespace(b.String())
}
