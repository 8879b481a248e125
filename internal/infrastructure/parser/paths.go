package parser

import (
	"strconv"
	"strings"
)

// lookup resolves a dotted path inside decoded JSON. Numeric segments index
// arrays and "*" fans out over every element, collecting the results.
func lookup(v any, path string) any {
	if path == "" {
		return v
	}
	head, rest, _ := strings.Cut(path, ".")

	switch t := v.(type) {
	case map[string]any:
		next, ok := t[head]
		if !ok {
			return nil
		}
		return lookup(next, rest)
	case []any:
		if head == "*" {
			var out []any
			for _, item := range t {
				switch r := lookup(item, rest).(type) {
				case nil:
				case []any:
					out = append(out, r...)
				default:
					out = append(out, r)
				}
			}
			if len(out) == 0 {
				return nil
			}
			return out
		}
		i, err := strconv.Atoi(head)
		if err != nil || i < 0 || i >= len(t) {
			return nil
		}
		return lookup(t[i], rest)
	}
	return nil
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// splitCell splits a multi-valued cell on '|' or ','.
func splitCell(s string) []string {
	sep := ","
	if strings.Contains(s, "|") {
		sep = "|"
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// seenSet de-duplicates values within one extraction run. A new set is made
// per run so concurrent runs never share state.
type seenSet map[string]struct{}

func (s seenSet) add(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}
