// Package variants expands independent option groups into synthetic variants.
//
// Expansion is a Cartesian product generated in odometer order: the first
// group varies slowest and the last group fastest. The number of generated
// combinations is capped; when the cap is hit the output is the first N
// combinations in that order and the truncated flag is set.
package variants

import (
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"CatalogSync/internal/domain"
)

// DefaultMaxCombinations applies when no positive cap is configured.
const DefaultMaxCombinations = 100

const groupSeparator = "_"

// OptionGroup is one independent attribute with its possible values.
type OptionGroup struct {
	Name   string
	Values []string
}

// Result is the outcome of an expansion.
type Result struct {
	Variants  []domain.Variant
	Possible  int
	Truncated bool
}

// Synthesize expands groups into variants with composite SKUs. Fewer than two
// usable groups produce no variants.
func Synthesize(baseSKU string, groups []OptionGroup, max int) Result {
	if max <= 0 {
		max = DefaultMaxCombinations
	}

	normalized := normalizeGroups(groups)
	if len(normalized) < 2 {
		return Result{}
	}

	possible := 1
	for _, g := range normalized {
		possible *= len(g.values)
		if possible > 1<<30 {
			possible = 1 << 30
		}
	}

	limit := possible
	if limit > max {
		limit = max
	}

	base := strings.TrimSpace(baseSKU)
	idx := make([]int, len(normalized))
	out := make([]domain.Variant, 0, limit)

	for len(out) < limit {
		opts := make(map[string]string, len(normalized))
		parts := make([]string, 0, len(normalized))
		for gi, g := range normalized {
			v := g.values[idx[gi]]
			opts[g.name] = v.raw
			parts = append(parts, v.slug)
		}

		sku := strings.Join(parts, groupSeparator)
		if base != "" {
			sku = base + groupSeparator + sku
		}

		out = append(out, domain.Variant{
			ID:        sku,
			SKU:       sku,
			Options:   opts,
			Available: true,
			Synthetic: true,
		})

		if !advance(idx, normalized) {
			break
		}
	}

	return Result{Variants: out, Possible: possible, Truncated: possible > limit}
}

// advance steps the odometer; it reports false once every combination was
// produced.
func advance(idx []int, groups []group) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < len(groups[i].values) {
			return true
		}
		idx[i] = 0
	}
	return false
}

type value struct {
	raw  string
	slug string
}

type group struct {
	name   string
	values []value
}

// normalizeGroups drops empty groups and values whose normalized form repeats
// inside a group, so composite SKUs stay unique.
func normalizeGroups(groups []OptionGroup) []group {
	out := make([]group, 0, len(groups))
	for _, g := range groups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		seen := map[string]struct{}{}
		var values []value
		for i, raw := range g.Values {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			s := normalizeValue(raw)
			if s == "" {
				s = "opt" + strconv.Itoa(i)
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			values = append(values, value{raw: raw, slug: s})
		}
		if len(values) > 0 {
			out = append(out, group{name: name, values: values})
		}
	}
	return out
}

func normalizeValue(raw string) string {
	return strings.ReplaceAll(slug.Make(raw), groupSeparator, "-")
}
