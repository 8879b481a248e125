package parser

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"CatalogSync/internal/extract"
)

// linkedData maps the first schema.org Product or ProductGroup node found in
// JSON-LD blocks.
func linkedData(doc *goquery.Document, seen seenSet) extract.RawRecord {
	var product map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return true
		}
		product = findTyped(v, "Product", "ProductGroup")
		return product == nil
	})
	if product == nil {
		return nil
	}
	return mapLinkedProduct(product, seen)
}

func mapLinkedProduct(node map[string]any, seen seenSet) extract.RawRecord {
	out := extract.RawRecord{}
	setString(out, extract.FieldTitle, node["name"])
	setString(out, extract.FieldDescription, node["description"])
	setString(out, extract.FieldCategory, node["category"])
	setString(out, extract.FieldURL, node["url"])
	for _, k := range []string{"sku", "mpn", "productGroupID", "productID", "gtin13", "gtin"} {
		if s := scalarString(node[k]); s != "" {
			out[extract.FieldSKU] = s
			break
		}
	}
	setString(out, extract.FieldBrand, named(node["brand"]))

	var images []any
	for _, img := range asSlice(node["image"]) {
		if u := named(img); u != "" && seen.add(u) {
			images = append(images, u)
		}
	}
	if len(images) > 0 {
		out[extract.FieldImages] = images
	}

	var videos []any
	for _, v := range asSlice(node["video"]) {
		if m, ok := v.(map[string]any); ok {
			for _, k := range []string{"contentUrl", "embedUrl", "url"} {
				if u := scalarString(m[k]); u != "" && seen.add(u) {
					videos = append(videos, u)
					break
				}
			}
		}
	}
	if len(videos) > 0 {
		out[extract.FieldVideos] = videos
	}

	applyOffers(out, node["offers"])

	var reviews []any
	for _, r := range asSlice(node["review"]) {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		rev := map[string]any{
			"author": named(m["author"]),
			"text":   scalarString(m["reviewBody"]),
		}
		if rating, ok := m["reviewRating"].(map[string]any); ok {
			rev["rating"] = rating["ratingValue"]
		}
		reviews = append(reviews, rev)
	}
	if len(reviews) > 0 {
		out[extract.FieldReviews] = reviews
	}

	var variants []any
	for _, v := range asSlice(node["hasVariant"]) {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		variant := map[string]any{"sku": scalarString(m["sku"])}
		sub := extract.RawRecord{}
		applyOffers(sub, m["offers"])
		if p, ok := sub[extract.FieldPrice]; ok {
			variant["price"] = p
		}
		if a, ok := sub[extract.FieldAvailability]; ok {
			variant["availability"] = a
		}
		if img := named(firstItem(m["image"])); img != "" {
			variant["image"] = img
		}
		opts := map[string]any{}
		for _, k := range []string{"color", "size", "material", "pattern"} {
			if s := scalarString(m[k]); s != "" {
				opts[k] = s
			}
		}
		if len(opts) > 0 {
			variant["options"] = opts
		}
		variants = append(variants, variant)
	}
	if len(variants) > 0 {
		out[extract.FieldVariants] = variants
	}
	return out
}

// applyOffers reads price, currency and availability from an Offer, a list
// of offers or an AggregateOffer.
func applyOffers(out extract.RawRecord, offers any) {
	for _, o := range asSlice(offers) {
		m, ok := o.(map[string]any)
		if !ok {
			continue
		}
		if strings.EqualFold(typeOf(m), "AggregateOffer") {
			if _, set := out[extract.FieldPrice]; !set {
				if p := m["lowPrice"]; p != nil {
					out[extract.FieldPrice] = p
				}
			}
			if nested := m["offers"]; nested != nil {
				applyOffers(out, nested)
			}
		}
		if _, set := out[extract.FieldPrice]; !set {
			if p := m["price"]; p != nil {
				out[extract.FieldPrice] = p
			} else if ps, ok := m["priceSpecification"].(map[string]any); ok && ps["price"] != nil {
				out[extract.FieldPrice] = ps["price"]
			}
		}
		setString(out, extract.FieldCurrency, m["priceCurrency"])
		setString(out, extract.FieldAvailability, m["availability"])
		if qty := m["inventoryLevel"]; qty != nil {
			if lvl, ok := qty.(map[string]any); ok {
				qty = lvl["value"]
			}
			if _, set := out[extract.FieldStock]; !set {
				out[extract.FieldStock] = qty
			}
		}
	}
}

// findTyped walks decoded JSON-LD (objects, arrays, @graph) for a node of
// one of the given @type values.
func findTyped(v any, types ...string) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		for _, want := range types {
			if hasType(t, want) {
				return t
			}
		}
		if g, ok := t["@graph"]; ok {
			if found := findTyped(g, types...); found != nil {
				return found
			}
		}
		if main, ok := t["mainEntity"]; ok {
			return findTyped(main, types...)
		}
	case []any:
		for _, item := range t {
			if found := findTyped(item, types...); found != nil {
				return found
			}
		}
	}
	return nil
}

func hasType(m map[string]any, want string) bool {
	for _, t := range asSlice(m["@type"]) {
		if s, ok := t.(string); ok && strings.EqualFold(strings.TrimPrefix(s, "schema:"), want) {
			return true
		}
	}
	return false
}

func typeOf(m map[string]any) string {
	if s, ok := firstItem(m["@type"]).(string); ok {
		return s
	}
	return ""
}

func asSlice(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	}
	return []any{v}
}

func firstItem(v any) any {
	if list := asSlice(v); len(list) > 0 {
		return list[0]
	}
	return nil
}

// named returns a string value or the name/url of an object.
func named(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for _, k := range []string{"name", "url", "contentUrl", "@id"} {
			if s := scalarString(t[k]); s != "" {
				return s
			}
		}
	case []any:
		if len(t) > 0 {
			return named(t[0])
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func setString(out extract.RawRecord, key string, v any) {
	if _, set := out[key]; set {
		return
	}
	if s := scalarString(v); s != "" {
		out[key] = s
	}
}
