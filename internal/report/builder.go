package report

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/nao1215/fairhire/internal/clock"
	"github.com/nao1215/fairhire/internal/model"
)

// DefaultTitle is the heading of every rendered report.
const DefaultTitle = "FairHire Audit Report"

// Summary is the structured form of a report.
type Summary struct {
	Title       string          `json:"title"`
	GeneratedAt time.Time       `json:"generated_at"`
	Total       int             `json:"total"`
	BiasCount   int             `json:"bias_count"`
	Findings    []model.Finding `json:"findings"`
}

// Renderer renders findings into a report.
type Renderer struct {
	title string
	clock clock.Clock
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithTitle sets the report heading.
func WithTitle(title string) RendererOption {
	return func(r *Renderer) {
		if title != "" {
			r.title = title
		}
	}
}

// WithClock sets the clock used for the generation timestamp.
func WithClock(c clock.Clock) RendererOption {
	return func(r *Renderer) {
		if c != nil {
			r.clock = c
		}
	}
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		title: DefaultTitle,
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render renders the findings as Markdown, one numbered section per finding
// in the order given.
func (r *Renderer) Render(findings []model.Finding) (string, error) {
	var sb strings.Builder
	md := markdown.NewMarkdown(&sb)

	md.H1(r.title)
	md.PlainText("Generated: " + r.clock.Now().Format(time.RFC3339))
	md.PlainText("")

	md.H2("Summary")
	md.PlainTextf("Total: %d, Bias Detected: %d", len(findings), model.CountBiased(findings))
	md.PlainText("")

	md.H2("Findings")
	md.PlainText("")
	if len(findings) == 0 {
		md.PlainText("No findings.")
		md.PlainText("")
	}

	for i, f := range findings {
		md.H3(fmt.Sprintf("%d. %s %s", i+1, findingType(f), verdictTag(f)))
		if f.Summary != "" {
			md.PlainText(f.Summary)
		}
		md.PlainText("")
		if len(f.Metrics) > 0 {
			md.Table(metricsTable(f.Metrics))
			md.PlainText("")
		}
	}

	if err := md.Build(); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return sb.String(), nil
}

// RenderStructured returns the findings with their totals.
func (r *Renderer) RenderStructured(findings []model.Finding) Summary {
	cp := slices.Clone(findings)
	if cp == nil {
		cp = []model.Finding{}
	}
	return Summary{
		Title:       r.title,
		GeneratedAt: r.clock.Now(),
		Total:       len(findings),
		BiasCount:   model.CountBiased(findings),
		Findings:    cp,
	}
}

func findingType(f model.Finding) string {
	if f.Type == "" {
		return "Check"
	}
	return f.Type
}

func verdictTag(f model.Finding) string {
	if f.IsBiased {
		return "[BIAS]"
	}
	return "[OK]"
}

// metricsTable lists metrics sorted by name so output is stable.
func metricsTable(metrics map[string]float64) markdown.TableSet {
	rows := make([][]string, 0, len(metrics))
	for _, k := range slices.Sorted(maps.Keys(metrics)) {
		rows = append(rows, []string{k, strconv.FormatFloat(metrics[k], 'f', 4, 64)})
	}
	return markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows:   rows,
	}
}
