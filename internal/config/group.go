package config

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/fairhire/internal/model"
)

// ParseGroup parses a group written as "attr=value[,attr=value...]",
// for example "gender=1" or "gender=0,age_band=2".
func ParseGroup(s string) (model.Group, error) {
	g := model.Group{}
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, raw, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid group term %q: expected attr=value", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q in group %q: %w", key, s, err)
		}
		if _, dup := g[key]; dup {
			return nil, fmt.Errorf("attribute %q appears twice in group %q", key, s)
		}
		g[key] = v
	}
	if len(g) == 0 {
		return nil, fmt.Errorf("empty group %q", s)
	}
	return g, nil
}

// ParseGroups parses every group expression.
func ParseGroups(exprs []string) ([]model.Group, error) {
	groups := make([]model.Group, 0, len(exprs))
	for _, e := range exprs {
		g, err := ParseGroup(e)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// FormatGroup renders a group in the form accepted by ParseGroup,
// with attributes sorted by name.
func FormatGroup(g model.Group) string {
	terms := make([]string, 0, len(g))
	for _, k := range slices.Sorted(maps.Keys(g)) {
		terms = append(terms, k+"="+strconv.FormatFloat(g[k], 'f', -1, 64))
	}
	return strings.Join(terms, ",")
}
