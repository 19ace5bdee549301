package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/fairhire/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text for the terminal.
// Verdicts are coloured unless colour is disabled or stdout is not a terminal.
type SimpleWriter struct {
	baseWriter

	// verbose adds metrics and step traces.
	verbose bool

	biased *color.Color
	ok     *color.Color
	muted  *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with metrics and step traces.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor forces colour on or off.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range []*color.Color{w.biased, w.ok, w.muted} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		biased:     color.New(color.FgRed, color.Bold),
		ok:         color.New(color.FgGreen),
		muted:      color.New(color.Faint),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the record in human-readable form.
func (w *SimpleWriter) Write(rec *model.AuditRecord) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, rec)
	w.writeFindings(&sb, rec)
	w.writeExplanations(&sb, rec)
	if w.verbose {
		w.writeSteps(&sb, rec)
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, rec *model.AuditRecord) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                        FAIRHIRE AUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	if rec.ID != "" {
		fmt.Fprintf(sb, "Audit ID:   %s\n", rec.ID)
	}
	fmt.Fprintf(sb, "Dataset:    %s\n", rec.DatasetLocation)
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(sb, "Created:    %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(sb, "Protected:  %s\n", strings.Join(rec.ProtectedAttributes, ", "))
	fmt.Fprintf(sb, "Label:      %s\n", rec.LabelColumn)
	fmt.Fprintf(sb, "Model:      %s\n", yesNo(rec.HasModel))
	fmt.Fprintf(sb, "Status:     %s\n", StatusLabel(rec.Status))

	biased := rec.BiasCount()
	summary := fmt.Sprintf("%d of %d checks detected bias", biased, len(rec.Findings))
	if biased > 0 {
		summary = w.biased.Sprint(summary)
	} else {
		summary = w.ok.Sprint(summary)
	}
	fmt.Fprintf(sb, "Result:     %s\n\n", summary)
}

func (w *SimpleWriter) writeFindings(sb *strings.Builder, rec *model.AuditRecord) {
	section(sb, "FINDINGS")

	if len(rec.Findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for i, f := range rec.Findings {
		tag := w.ok.Sprint(verdictTag(f))
		if f.IsBiased {
			tag = w.biased.Sprint(verdictTag(f))
		}
		fmt.Fprintf(sb, "  %d. %s %s\n", i+1, findingType(f), tag)
		if f.Summary != "" {
			fmt.Fprintf(sb, "     %s\n", f.Summary)
		}
		if w.verbose {
			for _, row := range metricsTable(f.Metrics).Rows {
				fmt.Fprintf(sb, "       %-32s %s\n", row[0], row[1])
			}
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeExplanations(sb *strings.Builder, rec *model.AuditRecord) {
	if len(rec.Explanations) == 0 {
		return
	}

	section(sb, "EXPLANATIONS")
	for _, e := range rec.Explanations {
		if e.PredictedClass != "" {
			fmt.Fprintf(sb, "  Row %d: %s (fidelity %.3f)\n", e.Row, e.PredictedClass, e.Score)
		} else {
			fmt.Fprintf(sb, "  Row %d (fidelity %.3f)\n", e.Row, e.Score)
		}
		sb.WriteString(KeyFactors(e))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSteps(sb *strings.Builder, rec *model.AuditRecord) {
	if len(rec.Steps) == 0 {
		return
	}

	section(sb, "STEPS")
	for _, s := range rec.Steps {
		line := fmt.Sprintf("  %-12s %s", s.Name, s.Outcome)
		if s.Reason != "" {
			line += " (" + s.Reason + ")"
		}
		if s.Outcome == model.OutcomeSkipped {
			line = w.muted.Sprint(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// KeyFactors lists an explanation's features with the direction of their
// influence on the favourable outcome.
func KeyFactors(e model.Explanation) string {
	var sb strings.Builder
	sb.WriteString("    Key factors:")
	for _, f := range e.Features {
		arrow := "↓"
		if f.Weight > 0 {
			arrow = "↑"
		}
		fmt.Fprintf(&sb, "\n      • %s: %s (%.3f)", f.Feature, arrow, f.Weight)
	}
	return sb.String()
}

// StatusLabel renders a status for people, e.g. "Model Bias Skipped".
func StatusLabel(s model.Status) string {
	if s == "" {
		return "Unknown"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "_", " "))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
