package report

import (
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/fairhire/internal/model"
)

// Directions of a comparison.
const (
	DirectionImproved  = "improved"
	DirectionWorsened  = "worsened"
	DirectionUnchanged = "unchanged"
)

// AuditMeta identifies one side of a comparison.
type AuditMeta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Dataset   string    `json:"dataset"`
	Total     int       `json:"total"`
	BiasCount int       `json:"bias_count"`
}

// MetricDelta is the change of one metric between two audits.
// Base or Target is nil when the metric is missing on that side.
type MetricDelta struct {
	Name   string   `json:"name"`
	Base   *float64 `json:"base,omitempty"`
	Target *float64 `json:"target,omitempty"`
	Delta  *float64 `json:"delta,omitempty"`
}

// FindingDelta compares the findings of one type.
type FindingDelta struct {
	Type         string        `json:"type"`
	InBase       bool          `json:"in_base"`
	InTarget     bool          `json:"in_target"`
	BaseBiased   bool          `json:"base_biased"`
	TargetBiased bool          `json:"target_biased"`
	Metrics      []MetricDelta `json:"metrics"`
}

// Comparison is the difference between a base audit and a later target audit.
type Comparison struct {
	Base      AuditMeta      `json:"base"`
	Target    AuditMeta      `json:"target"`
	Findings  []FindingDelta `json:"findings"`
	Direction string         `json:"direction"`
}

// Compare matches findings by type and reports how verdicts and metrics moved.
func Compare(base, target *model.AuditRecord) *Comparison {
	c := &Comparison{
		Base:   metaOf(base),
		Target: metaOf(target),
	}

	baseByType := findingsByType(base.Findings)
	targetByType := findingsByType(target.Findings)

	var types []string
	for _, f := range base.Findings {
		types = appendUnique(types, f.Type)
	}
	for _, f := range target.Findings {
		types = appendUnique(types, f.Type)
	}

	for _, typ := range types {
		b, inBase := baseByType[typ]
		t, inTarget := targetByType[typ]
		c.Findings = append(c.Findings, FindingDelta{
			Type:         typ,
			InBase:       inBase,
			InTarget:     inTarget,
			BaseBiased:   inBase && b.IsBiased,
			TargetBiased: inTarget && t.IsBiased,
			Metrics:      metricDeltas(b.Metrics, t.Metrics),
		})
	}

	switch {
	case c.Target.BiasCount < c.Base.BiasCount:
		c.Direction = DirectionImproved
	case c.Target.BiasCount > c.Base.BiasCount:
		c.Direction = DirectionWorsened
	default:
		c.Direction = DirectionUnchanged
	}
	return c
}

// WriteText writes the comparison as plain text.
func (c *Comparison) WriteText(out io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Audit Comparison: %s -> %s\n", c.Base.ID, c.Target.ID)
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Bias Status: %s\n\n", c.Direction)
	fmt.Fprintf(&sb, "  %-10s  %-20s  %-8s  %s\n", "", "Created", "Checks", "Bias")
	fmt.Fprintf(&sb, "  %-10s  %-20s  %-8d  %d\n", "Base", formatTime(c.Base.CreatedAt), c.Base.Total, c.Base.BiasCount)
	fmt.Fprintf(&sb, "  %-10s  %-20s  %-8d  %d\n", "Target", formatTime(c.Target.CreatedAt), c.Target.Total, c.Target.BiasCount)

	for _, f := range c.Findings {
		fmt.Fprintf(&sb, "\n%s: %s -> %s\n", f.Type, presence(f.InBase, f.BaseBiased), presence(f.InTarget, f.TargetBiased))
		for _, m := range f.Metrics {
			fmt.Fprintf(&sb, "  %-32s %10s %10s %10s\n", m.Name, formatOpt(m.Base), formatOpt(m.Target), formatDelta(m.Delta))
		}
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

func metaOf(r *model.AuditRecord) AuditMeta {
	return AuditMeta{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Dataset:   r.DatasetLocation,
		Total:     len(r.Findings),
		BiasCount: r.BiasCount(),
	}
}

// findingsByType keeps the first finding of each type.
func findingsByType(findings []model.Finding) map[string]model.Finding {
	m := make(map[string]model.Finding, len(findings))
	for _, f := range findings {
		if _, ok := m[f.Type]; !ok {
			m[f.Type] = f
		}
	}
	return m
}

func metricDeltas(base, target map[string]float64) []MetricDelta {
	names := slices.Sorted(maps.Keys(base))
	for k := range target {
		if _, ok := base[k]; !ok {
			names = append(names, k)
		}
	}
	slices.Sort(names)

	out := make([]MetricDelta, 0, len(names))
	for _, n := range names {
		d := MetricDelta{Name: n}
		if v, ok := base[n]; ok {
			d.Base = &v
		}
		if v, ok := target[n]; ok {
			d.Target = &v
		}
		if d.Base != nil && d.Target != nil {
			delta := *d.Target - *d.Base
			d.Delta = &delta
		}
		out = append(out, d)
	}
	return out
}

func appendUnique(s []string, v string) []string {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}

func presence(present, biased bool) string {
	switch {
	case !present:
		return "absent"
	case biased:
		return "BIAS"
	default:
		return "OK"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatOpt(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func formatDelta(v *float64) string {
	if v == nil {
		return "-"
	}
	if math.Abs(*v) < 5e-5 {
		return "0"
	}
	return fmt.Sprintf("%+.4f", *v)
}
