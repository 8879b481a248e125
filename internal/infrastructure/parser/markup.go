package parser

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"CatalogSync/internal/extract"
)

// defaultSelectors lists candidate selectors per field, tried in order.
// "css@attr" reads an attribute instead of the element text.
var defaultSelectors = map[string][]string{
	extract.FieldTitle: {"h1[itemprop=name]", "[itemprop=name]@content", "h1.product-title", "h1.product_title", ".product-title", "h1"},
	extract.FieldPrice: {
		"[itemprop=price]@content", "[itemprop=price]", "[data-price]@data-price",
		".price ins .amount", ".product-price", ".price-current", ".price",
	},
	extract.FieldOriginalPrice: {".price del .amount", ".compare-at-price", ".old-price", ".price-old"},
	extract.FieldCurrency:      {"[itemprop=priceCurrency]@content"},
	extract.FieldSKU:           {"[itemprop=sku]@content", "[itemprop=sku]", "[data-sku]@data-sku", ".sku"},
	extract.FieldDescription: {
		"[itemprop=description]", "#description", ".product-description",
		".woocommerce-product-details__short-description",
	},
	extract.FieldBrand:        {"[itemprop=brand] [itemprop=name]", "[itemprop=brand]@content", "[itemprop=brand]", ".product-brand", ".brand"},
	extract.FieldCategory:     {"[itemprop=category]@content", ".breadcrumb li:last-child", ".breadcrumbs a:last-of-type"},
	extract.FieldAvailability: {"[itemprop=availability]@href", "[itemprop=availability]@content", ".stock", ".availability"},
	extract.FieldStock:        {"[data-stock]@data-stock", "input.qty@max"},
	extract.FieldImages: {
		"[itemprop=image]@src", "[itemprop=image]@content", ".product-gallery img@src", ".product-images img@src",
		"img.product-image@src", ".woocommerce-product-gallery__image a@href", "[data-zoom-image]@data-zoom-image",
	},
	extract.FieldVideos: {"video source@src", "video@src", "iframe[src*=youtube]@src", "iframe[src*=vimeo]@src"},
}

var placeholderPrefixes = []string{"choose", "select", "pick", "--", "выберите"}

func mergeSelectors(base, override map[string][]string) map[string][]string {
	out := make(map[string][]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if len(v) > 0 {
			out[k] = v
		}
	}
	return out
}

// markupFields applies candidate selectors per field: the first non-empty
// match wins for scalars, all matches are unioned for multi-valued fields.
// Each multi-valued field de-duplicates on its own, so a URL matched as both
// image and video lands in both lists.
func markupFields(doc *goquery.Document, selectors map[string][]string) extract.RawRecord {
	fields := make([]string, 0, len(selectors))
	for field := range selectors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := extract.RawRecord{}
	for _, field := range fields {
		candidates := selectors[field]
		if extract.MultiValued[field] {
			seen := seenSet{}
			var all []any
			for _, c := range candidates {
				for _, v := range selectAll(doc, c) {
					if seen.add(v) {
						all = append(all, v)
					}
				}
			}
			if len(all) > 0 {
				out[field] = all
			}
			continue
		}
		for _, c := range candidates {
			if vals := selectAll(doc, c); len(vals) > 0 {
				out[field] = vals[0]
				break
			}
		}
	}
	if groups := selectOptions(doc); len(groups) > 0 {
		out[extract.FieldOptions] = groups
	}
	return out
}

func selectAll(doc *goquery.Document, candidate string) []string {
	css, attr, hasAttr := strings.Cut(candidate, "@")
	var out []string
	doc.Find(css).Each(func(_ int, s *goquery.Selection) {
		var v string
		if hasAttr {
			v, _ = s.Attr(attr)
			v = strings.TrimSpace(v)
		} else {
			v = text(s)
		}
		if v != "" {
			out = append(out, v)
		}
	})
	return out
}

// selectOptions reads option groups from <select> elements such as size or
// color pickers.
func selectOptions(doc *goquery.Document) []any {
	var groups []any
	doc.Find("select").Each(func(_ int, s *goquery.Selection) {
		name := optionGroupName(doc, s)
		if name == "" {
			return
		}
		lower := strings.ToLower(name)
		if strings.Contains(lower, "qty") || strings.Contains(lower, "quantity") {
			return
		}

		var values []any
		s.Find("option").Each(func(_ int, o *goquery.Selection) {
			label := text(o)
			if v, ok := o.Attr("value"); ok && strings.TrimSpace(v) == "" {
				return
			}
			if label == "" || isPlaceholder(label) {
				return
			}
			values = append(values, label)
		})
		if len(values) > 0 {
			groups = append(groups, map[string]any{"name": name, "values": values})
		}
	})
	return groups
}

func optionGroupName(doc *goquery.Document, s *goquery.Selection) string {
	for _, attr := range []string{"data-option-name", "aria-label", "name", "id"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			if attr == "id" {
				if label := text(doc.Find(`label[for="` + v + `"]`)); label != "" {
					return strings.TrimSuffix(label, ":")
				}
			}
			return cleanOptionName(v)
		}
	}
	return ""
}

func cleanOptionName(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range []string{"attribute_pa_", "attribute_", "options[", "option-"} {
		name = strings.TrimPrefix(name, prefix)
	}
	return strings.TrimSuffix(name, "]")
}

func isPlaceholder(label string) bool {
	l := strings.ToLower(label)
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(l, p) {
			return true
		}
	}
	return false
}

// metaFallback reads OpenGraph and product meta tags plus the document
// title.
func metaFallback(doc *goquery.Document, seen seenSet) extract.RawRecord {
	out := extract.RawRecord{}
	meta := func(keys ...string) string {
		for _, k := range keys {
			sel := doc.Find(`meta[property="` + k + `"], meta[name="` + k + `"], meta[itemprop="` + k + `"]`).First()
			if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
	set := func(field, v string) {
		if v != "" {
			out[field] = v
		}
	}

	title := meta("og:title", "twitter:title")
	if title == "" {
		title = text(doc.Find("title").First())
	}
	set(extract.FieldTitle, title)
	set(extract.FieldDescription, meta("og:description", "description", "twitter:description"))
	set(extract.FieldPrice, meta("product:price:amount", "og:price:amount", "twitter:data1"))
	set(extract.FieldCurrency, meta("product:price:currency", "og:price:currency"))
	set(extract.FieldAvailability, meta("product:availability", "og:availability"))
	set(extract.FieldBrand, meta("product:brand", "og:brand"))
	set(extract.FieldCategory, meta("product:category"))
	set(extract.FieldSKU, meta("product:retailer_item_id", "product:sku"))
	set(extract.FieldURL, meta("og:url"))
	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && !out.Has(extract.FieldURL) {
		set(extract.FieldURL, strings.TrimSpace(href))
	}

	var images []any
	doc.Find(`meta[property="og:image"], meta[property="og:image:url"], meta[name="twitter:image"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && seen.add(v) {
			images = append(images, strings.TrimSpace(v))
		}
	})
	if len(images) > 0 {
		out[extract.FieldImages] = images
	}
	if v := meta("og:video", "og:video:url"); v != "" && seen.add(v) {
		out[extract.FieldVideos] = []any{v}
	}
	return out
}
