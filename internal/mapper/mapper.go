// Package mapper is the single translation boundary from untyped extractor
// output into canonical products.
package mapper

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/variants"
)

// Options tunes coercion.
type Options struct {
	AssumedInStockQuantity int
	MaxVariantCombinations int
	DefaultCurrency        string
}

// Conflict records a scalar that several partials disagreed on.
type Conflict struct {
	Field     string
	Kept      extract.Origin
	Discarded extract.Origin
	KeptValue string
	Dropped   string
}

// Draft is a mapped product before validation.
type Draft struct {
	Product           domain.Product
	Conflicts         []Conflict
	VariantsTruncated bool
}

// Mapper merges partial field sets and coerces them into products.
type Mapper struct {
	opts   Options
	logger *slog.Logger
}

// New builds a mapper.
func New(opts Options, logger *slog.Logger) *Mapper {
	if opts.AssumedInStockQuantity <= 0 {
		opts.AssumedInStockQuantity = 1
	}
	if opts.MaxVariantCombinations <= 0 {
		opts.MaxVariantCombinations = variants.DefaultMaxCombinations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{opts: opts, logger: logger.With("component", "mapper")}
}

// Merge coalesces scalar fields in trust order and unions multi-valued ones
// with order-preserving de-duplication.
func Merge(partials []extract.Partial) (extract.RawRecord, []Conflict) {
	ordered := extract.Record{Partials: partials}.Sorted()

	merged := extract.RawRecord{}
	owner := map[string]extract.Origin{}
	seen := map[string]map[string]struct{}{}
	var conflicts []Conflict

	for _, part := range ordered {
		keys := make([]string, 0, len(part.Fields))
		for k := range part.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			if !part.Fields.Has(key) {
				continue
			}
			value := part.Fields[key]

			if extract.MultiValued[key] {
				set, ok := seen[key]
				if !ok {
					set = map[string]struct{}{}
					seen[key] = set
				}
				list, _ := merged[key].([]any)
				for _, item := range asList(value) {
					id := identity(key, item)
					if id == "" {
						continue
					}
					if _, dup := set[id]; dup {
						continue
					}
					set[id] = struct{}{}
					list = append(list, item)
				}
				if len(list) > 0 {
					merged[key] = list
				}
				continue
			}

			if !merged.Has(key) {
				merged[key] = value
				owner[key] = part.Origin
				continue
			}
			if key == extract.FieldVariants || key == extract.FieldOptions {
				continue
			}
			kept, dropped := asString(merged[key]), asString(value)
			if kept != dropped {
				conflicts = append(conflicts, Conflict{
					Field:     key,
					Kept:      owner[key],
					Discarded: part.Origin,
					KeptValue: kept,
					Dropped:   dropped,
				})
			}
		}
	}
	return merged, conflicts
}

func identity(key string, item any) string {
	if key == extract.FieldReviews {
		r, ok := asReview(item)
		if !ok {
			return ""
		}
		return strings.ToLower(r.Author) + "\x00" + strings.ToLower(r.Text) + "\x00" + strconv.FormatFloat(r.Rating, 'f', -1, 64)
	}
	return asURL(item)
}

// Map merges a record's partials into a product draft.
func (m *Mapper) Map(rec extract.Record) Draft {
	merged, conflicts := Merge(rec.Partials)
	for _, c := range conflicts {
		m.logger.Debug("mapping ambiguity resolved by priority",
			"field", c.Field, "kept", c.Kept, "discarded", c.Discarded, "source", rec.SourceURL)
	}

	draft := m.Coerce(merged, rec.SourceURL)
	draft.Conflicts = conflicts
	return draft
}

// Coerce turns one merged raw record into a typed draft.
func (m *Mapper) Coerce(raw extract.RawRecord, sourceURL string) Draft {
	if u := asString(raw[extract.FieldURL]); u != "" {
		sourceURL = absolutize(u, sourceURL)
	}

	p := domain.Product{
		SKU:         asString(raw[extract.FieldSKU]),
		Title:       collapse(asString(raw[extract.FieldTitle])),
		Description: strings.TrimSpace(asString(raw[extract.FieldDescription])),
		Category:    collapse(asString(raw[extract.FieldCategory])),
		Brand:       collapse(asString(raw[extract.FieldBrand])),
		Currency:    strings.ToUpper(asString(raw[extract.FieldCurrency])),
		SourceURL:   sourceURL,
		Status:      domain.StatusActive,
	}
	if p.SKU == "" {
		p.SKU = asString(raw[extract.FieldID])
	}

	p.Price = ParsePrice(raw[extract.FieldPrice])
	p.OriginalPrice = ParsePrice(raw[extract.FieldOriginalPrice])
	if p.Currency == "" {
		if s, ok := raw[extract.FieldPrice].(string); ok {
			p.Currency = CurrencyFromText(s)
		}
	}
	if p.Currency == "" {
		p.Currency = m.opts.DefaultCurrency
	}

	for _, item := range asList(raw[extract.FieldImages]) {
		p.Images = appendUnique(p.Images, absolutize(asURL(item), sourceURL))
	}
	for _, item := range asList(raw[extract.FieldVideos]) {
		p.Videos = appendUnique(p.Videos, absolutize(asURL(item), sourceURL))
	}
	for _, item := range asList(raw[extract.FieldReviews]) {
		if r, ok := asReview(item); ok {
			p.Reviews = append(p.Reviews, r)
		}
	}

	stock, known := asStock(raw[extract.FieldStock])
	if !known {
		if avail, ok := asAvailability(raw[extract.FieldAvailability]); ok {
			known = true
			if avail {
				stock = m.opts.AssumedInStockQuantity
			}
		}
	}

	p.Variants = m.explicitVariants(raw[extract.FieldVariants], p.SKU, sourceURL)
	truncated := false
	if len(p.Variants) == 0 {
		res := variants.Synthesize(p.SKU, optionGroups(raw[extract.FieldOptions]), m.opts.MaxVariantCombinations)
		for i := range res.Variants {
			res.Variants[i].Price = cloneFloat(p.Price)
			res.Variants[i].OriginalPrice = cloneFloat(p.OriginalPrice)
		}
		p.Variants = res.Variants
		truncated = res.Truncated
		if truncated {
			m.logger.Warn("variant combinations truncated",
				"sku", p.SKU, "possible", res.Possible, "kept", len(res.Variants))
		}
	}

	if p.Price == nil {
		p.Price = lowestVariantPrice(p.Variants)
	}
	if !known && hasVariantStock(p.Variants) {
		known = true
		for _, v := range p.Variants {
			stock += v.Stock
		}
	}
	p.Stock = stock
	p.StockUnknown = !known
	if known && stock == 0 {
		p.Status = domain.StatusOutOfStock
	}

	p.Cost = ParsePrice(raw[extract.FieldCost])
	if p.Cost == nil {
		p.Cost = cloneFloat(p.Price)
	}

	return Draft{Product: p, VariantsTruncated: truncated}
}

func (m *Mapper) explicitVariants(v any, baseSKU, sourceURL string) []domain.Variant {
	items := asList(v)
	out := make([]domain.Variant, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		vr := domain.Variant{
			ID:            asString(firstOf(obj, "id", "variant_id", "productID")),
			SKU:           asString(firstOf(obj, "sku", "SKU")),
			Price:         ParsePrice(firstOf(obj, "price", "offers")),
			OriginalPrice: ParsePrice(firstOf(obj, "original_price", "compare_at_price", "regular_price")),
			Image:         absolutize(asURL(firstOf(obj, "image", "featured_image", "src")), sourceURL),
			Options:       variantOptions(obj),
		}
		if vr.SKU == "" {
			vr.SKU = fmt.Sprintf("%s-%d", baseSKU, i+1)
			if baseSKU == "" {
				vr.SKU = vr.ID
			}
		}
		if vr.ID == "" {
			vr.ID = vr.SKU
		}

		stock, known := asStock(firstOf(obj, "stock", "inventory_quantity", "stock_quantity", "quantity"))
		vr.Stock = stock
		switch avail, ok := asAvailability(firstOf(obj, "available", "availability", "in_stock")); {
		case known:
			vr.Available = stock > 0
		case ok:
			vr.Available = avail
			if avail {
				vr.Stock = m.opts.AssumedInStockQuantity
			}
		default:
			vr.Available = true
		}
		out = append(out, vr)
	}
	return out
}

func variantOptions(obj map[string]any) map[string]string {
	opts := map[string]string{}
	switch t := obj["options"].(type) {
	case map[string]any:
		for k, v := range t {
			if s := asString(v); s != "" {
				opts[k] = s
			}
		}
	case []any:
		for i, v := range t {
			if pair, ok := v.(map[string]any); ok {
				if name, val := asString(pair["name"]), asString(pair["value"]); name != "" && val != "" {
					opts[name] = val
				}
				continue
			}
			if s := asString(v); s != "" {
				opts["option"+strconv.Itoa(i+1)] = s
			}
		}
	}
	for i := 1; i <= 3; i++ {
		if s := asString(obj["option"+strconv.Itoa(i)]); s != "" {
			if _, ok := opts["option"+strconv.Itoa(i)]; !ok {
				opts["option"+strconv.Itoa(i)] = s
			}
		}
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

// optionGroups accepts either [{name, values}] or {name: [values]}; the map
// form is ordered by name.
func optionGroups(v any) []variants.OptionGroup {
	var out []variants.OptionGroup
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			g := variants.OptionGroup{Name: asString(obj["name"])}
			for _, val := range asList(obj["values"]) {
				g.Values = append(g.Values, asString(val))
			}
			out = append(out, g)
		}
	case map[string]any:
		names := make([]string, 0, len(t))
		for k := range t {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, name := range names {
			g := variants.OptionGroup{Name: name}
			for _, val := range asList(t[name]) {
				g.Values = append(g.Values, asString(val))
			}
			out = append(out, g)
		}
	case []variants.OptionGroup:
		out = t
	}
	return out
}

func lowestVariantPrice(vs []domain.Variant) *float64 {
	var low *float64
	for _, v := range vs {
		if v.Price != nil && (low == nil || *v.Price < *low) {
			low = cloneFloat(v.Price)
		}
	}
	return low
}

func hasVariantStock(vs []domain.Variant) bool {
	for _, v := range vs {
		if !v.Synthetic && v.Stock > 0 {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
