package mapper

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"CatalogSync/internal/domain"
)

var (
	firstInt   = regexp.MustCompile(`-?\d+`)
	whitespace = regexp.MustCompile(`\s+`)
)

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		if len(t) > 0 {
			return asString(t[0])
		}
		return ""
	case []string:
		if len(t) > 0 {
			return strings.TrimSpace(t[0])
		}
		return ""
	case map[string]any:
		for _, k := range []string{"name", "value", "text", "@value"} {
			if s := asString(t[k]); s != "" {
				return s
			}
		}
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// asStock returns the quantity and whether one was present.
func asStock(v any) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return clamp(int(t)), true
	case int:
		return clamp(t), true
	case int64:
		return clamp(int(t)), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return clamp(int(f)), true
	case string:
		m := firstInt.FindString(t)
		if m == "" {
			return 0, false
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0, false
		}
		return clamp(n), true
	}
	return 0, false
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// asAvailability interprets availability text; ok is false when the value
// says nothing recognizable.
func asAvailability(v any) (available bool, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case nil:
		return false, false
	}
	words := strings.FieldsFunc(strings.ToLower(asString(v)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := negations[w]; ok {
			return false, true
		}
	}
	s := strings.Join(words, "")
	switch {
	case s == "":
		return false, false
	case strings.HasPrefix(s, "not"), strings.Contains(s, "notavailable"), strings.Contains(s, "notinstock"),
		strings.Contains(s, "outofstock"), strings.Contains(s, "soldout"),
		strings.Contains(s, "unavailable"), strings.Contains(s, "discontinued"), s == "false", s == "0":
		return false, true
	case strings.Contains(s, "instock"), strings.Contains(s, "available"),
		strings.Contains(s, "limitedavailability"), strings.Contains(s, "preorder"), s == "true":
		return true, true
	}
	return false, false
}

// negations flip any availability phrase they appear in.
var negations = map[string]struct{}{
	"not": {}, "no": {}, "non": {}, "nicht": {}, "kein": {}, "keine": {}, "nein": {}, "pas": {}, "never": {},
}

// asList flattens a multi-valued field into its elements.
func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []any{t}
	}
	return []any{v}
}

// asURL picks a link out of a string or an image/video object.
func asURL(v any) string {
	if m, ok := v.(map[string]any); ok {
		for _, k := range []string{"src", "url", "contentUrl", "embedUrl", "href"} {
			if s := asString(m[k]); s != "" {
				return s
			}
		}
		return ""
	}
	return asString(v)
}

func absolutize(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.IsAbs() || base == "" {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return raw
	}
	return b.ResolveReference(u).String()
}

func asReview(v any) (domain.Review, bool) {
	switch t := v.(type) {
	case domain.Review:
		return t, t.Text != "" || t.Rating > 0
	case map[string]any:
		r := domain.Review{
			Author: asString(t["author"]),
			Text:   collapse(asString(firstOf(t, "text", "reviewBody", "body", "content"))),
		}
		if p := ParsePrice(firstOf(t, "rating", "ratingValue", "reviewRating")); p != nil {
			r.Rating = *p
		}
		return r, r.Text != "" || r.Rating > 0
	case string:
		s := collapse(t)
		return domain.Review{Text: s}, s != ""
	}
	return domain.Review{}, false
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
