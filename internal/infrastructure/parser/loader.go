package parser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/ports"
)

// load reads a source document from a remote URL, or from a local file when
// the source allows it.
func load(ctx context.Context, fetcher ports.Fetcher, src extract.Source, locator string) ([]byte, string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, "", fmt.Errorf("empty locator")
	}

	u, err := url.Parse(locator)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if fetcher == nil {
			return nil, "", fmt.Errorf("no fetcher configured for %s", locator)
		}
		resp, err := fetcher.Fetch(ctx, ports.FetchRequest{URL: locator, Auth: src.Auth, Headers: acceptHeader(src)})
		if err != nil {
			return nil, "", err
		}
		final := resp.URL
		if final == "" {
			final = locator
		}
		return resp.Body, final, nil
	}

	if !src.AllowLocal {
		return nil, "", fmt.Errorf("%w: %s is not an http(s) url", domain.ErrInvalidLocator, locator)
	}
	path := locator
	if err == nil && u.Scheme == "file" {
		path = u.Path
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return body, "", nil
}

func acceptHeader(src extract.Source) map[string]string {
	switch src.Type {
	case domain.SourceAPI, domain.SourceJSON:
		return map[string]string{"Accept": "application/json"}
	case domain.SourceXML:
		return map[string]string{"Accept": "application/xml, text/xml"}
	case domain.SourceCSV:
		return map[string]string{"Accept": "text/csv, text/plain"}
	}
	return map[string]string{"Accept": "text/html,application/xhtml+xml"}
}

// option returns src.Options[key] or def.
func option(src extract.Source, key, def string) string {
	if v := strings.TrimSpace(src.Options[key]); v != "" {
		return v
	}
	return def
}

// alternatives splits a mapping entry into its ordered candidates.
func alternatives(expr string) []string {
	var out []string
	for _, part := range strings.Split(expr, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
