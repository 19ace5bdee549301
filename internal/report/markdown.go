package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/fairhire/internal/model"
)

// MarkdownWriter outputs an audit record as Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the record in Markdown format.
func (w *MarkdownWriter) Write(rec *model.AuditRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, rec)
	w.writeSummary(md, rec)
	w.writeFindings(md, rec)
	w.writeExplanations(md, rec)
	md.HorizontalRule()
	md.PlainText("*Report generated by FairHire*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, rec *model.AuditRecord) {
	md.H1(DefaultTitle)
	md.PlainText("")

	rows := [][]string{}
	if rec.ID != "" {
		rows = append(rows, []string{"Audit ID", "`" + rec.ID + "`"})
	}
	rows = append(rows,
		[]string{"Dataset", "`" + rec.DatasetLocation + "`"},
		[]string{"Protected Attributes", strings.Join(rec.ProtectedAttributes, ", ")},
		[]string{"Label Column", rec.LabelColumn},
		[]string{"Model Supplied", yesNo(rec.HasModel)},
		[]string{"Status", StatusLabel(rec.Status)},
	)
	if !rec.CreatedAt.IsZero() {
		rows = append(rows, []string{"Created", rec.CreatedAt.Format("2006-01-02 15:04:05 MST")})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, rec *model.AuditRecord) {
	biased := rec.BiasCount()

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Verdict", "Count"},
		Rows: [][]string{
			{"🔴 Bias", strconv.Itoa(biased)},
			{"🟢 OK", strconv.Itoa(len(rec.Findings) - biased)},
			{"**Total**", "**" + strconv.Itoa(len(rec.Findings)) + "**"},
		},
	})
	md.PlainText("")

	if len(rec.Findings) > 1 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Verdicts"),
			piechart.WithShowData(true),
		)
		if biased > 0 {
			chart.LabelAndIntValue("Bias", uint64(biased))
		}
		if ok := len(rec.Findings) - biased; ok > 0 {
			chart.LabelAndIntValue("OK", uint64(ok))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case biased > 0:
		md.Cautionf("Bias detected in %d of %d checks.", biased, len(rec.Findings))
	case len(rec.Findings) == 0:
		md.Note("No checks produced a finding.")
	default:
		md.Tip("No bias detected.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, rec *model.AuditRecord) {
	md.H2("Findings")
	md.PlainText("")

	if len(rec.Findings) == 0 {
		md.PlainText("No findings.")
		md.PlainText("")
		return
	}

	for i, f := range rec.Findings {
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
}

func (w *MarkdownWriter) writeExplanations(md *markdown.Markdown, rec *model.AuditRecord) {
	if len(rec.Explanations) == 0 {
		return
	}

	md.H2("Explanations")
	md.PlainText("")
	for _, e := range rec.Explanations {
		rows := make([][]string, 0, len(e.Features))
		for _, f := range e.Features {
			rows = append(rows, []string{f.Feature, strconv.FormatFloat(f.Weight, 'f', 3, 64)})
		}
		if e.PredictedClass != "" {
			md.H3(fmt.Sprintf("Row %d: %s", e.Row, e.PredictedClass))
		} else {
			md.H3(fmt.Sprintf("Row %d", e.Row))
		}
		md.PlainTextf("Fidelity: %.3f, Probabilities: %s", e.Score, formatProbabilities(e.PredictedProbabilities))
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Feature", "Weight"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func formatProbabilities(p []float64) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.FormatFloat(v, 'f', 3, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
