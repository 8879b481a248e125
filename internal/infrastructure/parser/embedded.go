package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"CatalogSync/internal/extract"
)

// stateStep is one link of the embedded-state chain. Each step reads the
// same script block and returns whatever fields it could salvage.
type stateStep func(block string, seen seenSet) extract.RawRecord

// stateChain runs from strictest to most forgiving.
var stateChain = []stateStep{strictState, relaxedState, scrapeState}

var (
	assignment = regexp.MustCompile(`(?:window\.|var\s+|let\s+|const\s+)?[A-Za-z_$][\w$.]*(?:\[["'][\w$]+["']\])?\s*=\s*\{`)

	// Keys may be double-quoted, single-quoted or bare.
	scrapeTitle = regexp.MustCompile(`(?:^|[^\w$])["']?(?:title|name|productName|subject)["']?\s*:\s*(?:"((?:[^"\\]|\\.)+)"|'((?:[^'\\]|\\.)+)')`)
	scrapePrice = regexp.MustCompile(`(?:^|[^\w$])["']?(?:price|salePrice|currentPrice|minPrice|formattedPrice)["']?\s*:\s*["']?([^"',}\]]*\d[^"',}\]]*)`)
	scrapeSKU   = regexp.MustCompile(`(?:^|[^\w$])["']?(?:sku|skuId|productId|itemId)["']?\s*:\s*["']?([\w-]+)`)
	scrapeImage = regexp.MustCompile(`https?:(?:\\?/){2}[^"'\s<>]+?\.(?:jpe?g|png|webp|gif)`)
)

// embeddedState scans inline scripts for serialized application state and
// walks the chain until title, price and images are known.
func embeddedState(doc *goquery.Document, seen seenSet) extract.RawRecord {
	out := extract.RawRecord{}
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		if strings.Contains(typ, "ld+json") {
			return true
		}
		block := strings.TrimSpace(s.Text())
		if block == "" {
			return true
		}
		for _, step := range stateChain {
			coalesce(out, step(block, seen))
			if complete(out) {
				return false
			}
		}
		return true
	})
	return out
}

func complete(r extract.RawRecord) bool {
	return r.Has(extract.FieldTitle) && r.Has(extract.FieldPrice) && r.Has(extract.FieldImages)
}

func coalesce(dst, src extract.RawRecord) {
	for k, v := range src {
		if !dst.Has(k) {
			dst[k] = v
		}
	}
}

func strictState(block string, seen seenSet) extract.RawRecord {
	for _, payload := range payloads(block) {
		var v any
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			continue
		}
		if node := productNode(v, 0); node != nil {
			return mapStateProduct(node, seen)
		}
	}
	return nil
}

func relaxedState(block string, seen seenSet) extract.RawRecord {
	for _, payload := range payloads(block) {
		var v any
		if json.Unmarshal([]byte(payload), &v) == nil {
			// strictState already saw it.
			continue
		}
		if err := json.Unmarshal([]byte(relax(payload)), &v); err != nil {
			continue
		}
		if node := productNode(v, 0); node != nil {
			return mapStateProduct(node, seen)
		}
	}
	return nil
}

// scrapeState pulls individual fields with patterns when no payload parses.
func scrapeState(block string, seen seenSet) extract.RawRecord {
	out := extract.RawRecord{}
	if m := scrapeTitle.FindStringSubmatch(block); m != nil {
		title := m[1]
		if title == "" {
			title = strings.ReplaceAll(m[2], `\'`, "'")
		}
		out[extract.FieldTitle] = unescape(title)
	}
	if m := scrapePrice.FindStringSubmatch(block); m != nil {
		out[extract.FieldPrice] = strings.TrimSpace(m[1])
	}
	if m := scrapeSKU.FindStringSubmatch(block); m != nil {
		out[extract.FieldSKU] = m[1]
	}
	var images []any
	for _, u := range scrapeImage.FindAllString(block, 20) {
		u = strings.ReplaceAll(u, `\/`, "/")
		if seen.add(u) {
			images = append(images, u)
		}
	}
	if len(images) > 0 {
		out[extract.FieldImages] = images
	}
	if !out.Has(extract.FieldTitle) && !out.Has(extract.FieldPrice) {
		return nil
	}
	return out
}

// payloads returns the object literals assigned in block, or block itself
// when it is a bare JSON document.
func payloads(block string) []string {
	var out []string
	if strings.HasPrefix(block, "{") {
		if obj := balanced(block, 0); obj != "" {
			out = append(out, obj)
		}
	}
	for _, loc := range assignment.FindAllStringIndex(block, -1) {
		if obj := balanced(block, loc[1]-1); obj != "" {
			out = append(out, obj)
		}
	}
	return out
}

// balanced returns the brace-balanced object starting at s[start], skipping
// quoted strings.
func balanced(s string, start int) string {
	depth := 0
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// relax rewrites a JavaScript object literal into JSON: single-quoted
// strings become double-quoted, bare keys get quoted, trailing commas are
// dropped and undefined becomes null. String contents are never touched.
func relax(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	var last byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			end, closed := quotedEnd(s, i)
			if !closed {
				b.WriteString(s[i:])
				return b.String()
			}
			b.WriteString(s[i : end+1])
			i, last = end, '"'
		case c == '\'':
			end, closed := quotedEnd(s, i)
			b.WriteByte('"')
			writeSingleQuoted(&b, s[i+1:end])
			b.WriteByte('"')
			if !closed {
				return b.String()
			}
			i, last = end, '"'
		case c == ',':
			k := i + 1
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			if k < len(s) && (s[k] == '}' || s[k] == ']') {
				continue
			}
			b.WriteByte(c)
			last = c
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && (isIdentStart(s[j]) || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			word := s[i:j]
			k := j
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			switch {
			case (last == '{' || last == ',') && k < len(s) && s[k] == ':':
				b.WriteString(`"` + word + `"`)
			case word == "undefined":
				b.WriteString("null")
			default:
				b.WriteString(word)
			}
			i, last = j-1, 'a'
		default:
			b.WriteByte(c)
			if !isSpace(c) {
				last = c
			}
		}
	}
	return b.String()
}

// quotedEnd returns the index of the quote closing the string opened at
// start, or len(s) when it is unterminated.
func quotedEnd(s string, start int) (int, bool) {
	q := s[start]
	for j := start + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j, true
		}
	}
	return len(s), false
}

func writeSingleQuoted(b *strings.Builder, inner string) {
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '\\' && i+1 < len(inner) && inner[i+1] == '\'':
			b.WriteByte('\'')
			i++
		case c == '\\' && i+1 < len(inner):
			b.WriteByte(c)
			b.WriteByte(inner[i+1])
			i++
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func unescape(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

var stateTitleKeys = []string{"title", "name", "productName", "subject"}

// productNode finds the first object that looks like a product: a title
// plus some price or variant information.
func productNode(v any, depth int) map[string]any {
	if depth > 10 {
		return nil
	}
	switch t := v.(type) {
	case map[string]any:
		if hasAny(t, stateTitleKeys...) && hasAny(t, "price", "prices", "priceInfo", "offers", "variants", "skus", "salePrice") {
			return t
		}
		for _, child := range t {
			if found := productNode(child, depth+1); found != nil {
				return found
			}
		}
	case []any:
		for _, child := range t {
			if found := productNode(child, depth+1); found != nil {
				return found
			}
		}
	}
	return nil
}

func hasAny(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return true
		}
	}
	return false
}

func mapStateProduct(node map[string]any, seen seenSet) extract.RawRecord {
	out := extract.RawRecord{}
	pick := func(field string, keys ...string) {
		for _, k := range keys {
			if v, ok := node[k]; ok && !empty(v) {
				out[field] = v
				return
			}
		}
	}
	pick(extract.FieldTitle, stateTitleKeys...)
	pick(extract.FieldDescription, "description", "desc", "shortDescription")
	pick(extract.FieldSKU, "sku", "skuId", "productId", "id", "itemId")
	pick(extract.FieldPrice, "price", "salePrice", "priceInfo", "prices", "currentPrice")
	pick(extract.FieldOriginalPrice, "originalPrice", "compareAtPrice", "oldPrice", "listPrice")
	pick(extract.FieldCurrency, "currency", "currencyCode", "priceCurrency")
	pick(extract.FieldStock, "stock", "quantity", "inventory", "availableQuantity", "totalAvailQuantity")
	pick(extract.FieldAvailability, "availability", "inStock", "available")
	pick(extract.FieldCategory, "category", "categoryName", "productType")
	pick(extract.FieldVariants, "variants", "skus")
	pick(extract.FieldOptions, "options", "skuProps")
	if b := named(node["brand"]); b != "" {
		out[extract.FieldBrand] = b
	} else if b := named(node["vendor"]); b != "" {
		out[extract.FieldBrand] = b
	}

	var images []any
	for _, k := range []string{"images", "imageList", "imagePathList", "gallery", "image", "featuredImage"} {
		for _, img := range asSlice(node[k]) {
			u := named(img)
			if m, ok := img.(map[string]any); ok {
				if src := scalarString(m["src"]); src != "" {
					u = src
				}
			}
			if u != "" && seen.add(u) {
				images = append(images, u)
			}
		}
	}
	if len(images) > 0 {
		out[extract.FieldImages] = images
	}
	if prices, ok := out[extract.FieldPrice].([]any); ok && len(prices) > 0 {
		out[extract.FieldPrice] = prices[0]
	}
	return out
}
