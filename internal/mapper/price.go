package mapper

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"US$", "USD"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"₽", "RUB"},
	{"руб", "RUB"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₺", "TRY"},
	{"zł", "PLN"},
}

// ParsePrice normalizes a price-like value to a number. Unparsable or
// negative input yields nil.
//
// Locale policy: when both '.' and ',' occur, the one appearing last is the
// decimal separator and the other groups thousands. A lone ',' followed by
// exactly three digits groups thousands, otherwise it is the decimal
// separator. Repeated occurrences of the same separator always group.
func ParsePrice(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return nonNegative(t)
	case float32:
		return nonNegative(float64(t))
	case int:
		return nonNegative(float64(t))
	case int64:
		return nonNegative(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		return nonNegative(f)
	case string:
		return parsePriceText(t)
	case map[string]any:
		for _, k := range []string{"amount", "value", "price", "current", "ratingValue"} {
			if p := ParsePrice(t[k]); p != nil {
				return p
			}
		}
	case []any:
		if len(t) > 0 {
			return ParsePrice(t[0])
		}
	}
	return nil
}

func parsePriceText(s string) *float64 {
	var b strings.Builder
scan:
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			return nil
		case r == '-':
			// "10 - 20" ranges keep the lower bound.
			break scan
		}
	}
	clean := strings.Trim(b.String(), ".,")
	if clean == "" {
		return nil
	}

	dot := strings.LastIndex(clean, ".")
	comma := strings.LastIndex(clean, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case comma >= 0:
		if strings.Count(clean, ",") > 1 || len(clean)-comma-1 == 3 {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.Replace(clean, ",", ".", 1)
		}
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	if strings.Count(clean, ".") > 1 {
		return nil
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil
	}
	return nonNegative(f)
}

func nonNegative(f float64) *float64 {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// CurrencyFromText guesses an ISO code from a currency symbol in s.
func CurrencyFromText(s string) string {
	for _, c := range currencySymbols {
		if strings.Contains(s, c.symbol) {
			return c.code
		}
	}
	return ""
}
