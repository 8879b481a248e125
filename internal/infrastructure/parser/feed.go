package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/ports"
)

var feedWrappers = []string{"products", "items", "data", "results"}

var nextLinkPaths = []string{"next", "links.next", "pagination.next", "next_page_url", "meta.next"}

// defaultFeedMapping covers the common JSON catalog layouts. A source
// mapping overrides it per field.
var defaultFeedMapping = map[string]string{
	extract.FieldID:            "id|product_id|uuid",
	extract.FieldSKU:           "sku|code|article|variants.0.sku",
	extract.FieldTitle:         "title|name|product_name",
	extract.FieldDescription:   "description|body_html|short_description|summary",
	extract.FieldPrice:         "price|sale_price|price.amount|variants.0.price",
	extract.FieldOriginalPrice: "original_price|compare_at_price|regular_price|old_price|variants.0.compare_at_price",
	extract.FieldCost:          "cost|wholesale_price|purchase_price",
	extract.FieldCurrency:      "currency|price_currency|price.currency",
	extract.FieldImages:        "images.*.src|images.*.url|images|image|image_url",
	extract.FieldVideos:        "videos|video_url",
	extract.FieldStock:         "stock|stock_quantity|inventory_quantity|quantity",
	extract.FieldAvailability:  "availability|stock_status|in_stock|available",
	extract.FieldCategory:      "category|category.name|categories.0.name|product_type",
	extract.FieldBrand:         "brand|brand.name|vendor|manufacturer",
	extract.FieldVariants:      "variants",
	extract.FieldReviews:       "reviews",
	extract.FieldOptions:       "options",
	extract.FieldURL:           "url|permalink|link",
}

// FeedExtractor reads authenticated APIs and JSON catalog files, following
// pagination links.
type FeedExtractor struct {
	fetcher  ports.Fetcher
	maxPages int
	logger   *slog.Logger
}

// NewFeedExtractor wires a fetcher; maxPages defaults to 50.
func NewFeedExtractor(fetcher ports.Fetcher, maxPages int, logger *slog.Logger) *FeedExtractor {
	if maxPages <= 0 {
		maxPages = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedExtractor{fetcher: fetcher, maxPages: maxPages, logger: logger.With("component", "feed_extractor")}
}

// Name identifies the strategy inside the registry.
func (f *FeedExtractor) Name() string {
	return "feed"
}

// Types lists the source types handled.
func (f *FeedExtractor) Types() []domain.SourceType {
	return []domain.SourceType{domain.SourceAPI, domain.SourceJSON}
}

// Extract walks every page. A failure on the first page is fatal; later
// pages degrade to the records already read.
func (f *FeedExtractor) Extract(ctx context.Context, src extract.Source) ([]extract.Record, error) {
	mapping := mergeMapping(defaultFeedMapping, src.Mapping)
	maxPages := f.maxPages
	if n, err := strconv.Atoi(option(src, "maxPages", "")); err == nil && n > 0 {
		maxPages = n
	}

	var records []extract.Record
	visited := map[string]bool{}
	page := src.Locator

	for n := 0; n < maxPages && page != "" && !visited[page]; n++ {
		visited[page] = true

		body, final, err := load(ctx, f.fetcher, src, page)
		if err == nil && final == "" {
			final = page
		}
		var doc any
		if err == nil {
			dec := json.NewDecoder(bytes.NewReader(body))
			dec.UseNumber()
			if decErr := dec.Decode(&doc); decErr != nil {
				err = fmt.Errorf("decode feed: %w", decErr)
			}
		}
		if err != nil {
			if n == 0 {
				return nil, err
			}
			f.logger.Warn("feed page failed, keeping partial results", "page", page, "pages_read", n, "error", err)
			break
		}

		items := feedItems(doc)
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			fields := mapObject(obj, mapping)
			if len(fields) == 0 {
				continue
			}
			records = append(records, extract.Record{
				SourceURL: final,
				Partials:  []extract.Partial{{Origin: extract.OriginFeed, Fields: fields}},
			})
		}
		f.logger.Debug("feed page read", "page", page, "items", len(items))

		if len(items) == 0 {
			break
		}
		page = nextLink(doc, final)
	}
	return records, nil
}

func feedItems(doc any) []any {
	switch t := doc.(type) {
	case []any:
		return t
	case map[string]any:
		for _, key := range feedWrappers {
			if list, ok := t[key].([]any); ok {
				return list
			}
			if inner, ok := t[key].(map[string]any); ok {
				if items := feedItems(inner); items != nil {
					return items
				}
			}
		}
		if _, ok := t["title"]; ok {
			return []any{t}
		}
		if _, ok := t["name"]; ok {
			return []any{t}
		}
	}
	return nil
}

func nextLink(doc any, base string) string {
	for _, path := range nextLinkPaths {
		s, ok := lookup(doc, path).(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(s))
		if err != nil {
			return ""
		}
		b, err := url.Parse(base)
		if err != nil || ref.IsAbs() {
			return ref.String()
		}
		return b.ResolveReference(ref).String()
	}
	return ""
}

// mapObject applies mapping to one decoded item. Scalars take the first
// non-empty path; multi-valued fields union every path.
func mapObject(obj map[string]any, mapping map[string]string) extract.RawRecord {
	out := extract.RawRecord{}
	for field, expr := range mapping {
		paths := alternatives(expr)
		if extract.MultiValued[field] {
			var all []any
			for _, p := range paths {
				switch v := lookup(obj, p).(type) {
				case nil:
				case []any:
					for _, item := range v {
						if _, nested := item.(map[string]any); nested && field == extract.FieldImages {
							continue
						}
						all = append(all, item)
					}
				default:
					all = append(all, v)
				}
			}
			if len(all) > 0 {
				out[field] = all
			}
			continue
		}
		for _, p := range paths {
			if v := lookup(obj, p); !empty(v) {
				out[field] = v
				break
			}
		}
	}
	return out
}

func mergeMapping(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}
