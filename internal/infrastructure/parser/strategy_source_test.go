package parser

import (
	"context"
	"errors"
	"testing"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
)

func TestCollectUnknownTypeIsSourceError(t *testing.T) {
	t.Parallel()

	src := NewStrategySource(extract.NewRegistry(), 2, nil)
	_, err := src.Collect(context.Background(), extract.Source{Locator: "x", Type: domain.SourceCSV})

	var srcErr *domain.SourceError
	if !errors.As(err, &srcErr) || srcErr.Stage != "resolve" || !errors.Is(err, domain.ErrNoExtractor) {
		t.Fatalf("expected resolve source error, got %v", err)
	}
}

func TestCollectAllKeepsInputOrder(t *testing.T) {
	t.Parallel()

	first := writeFile(t, "a.csv", []byte("sku,title\nA-1,First\n"))
	second := writeFile(t, "b.csv", []byte("sku,title\nB-1,Second\nB-2,Third\n"))

	reg := NewRegistry(nil, Config{}, nil)
	results := NewStrategySource(reg, 2, nil).CollectAll(context.Background(), []extract.Source{
		{Locator: first, Type: domain.SourceCSV, AllowLocal: true},
		{Locator: "missing.csv", Type: domain.SourceCSV, AllowLocal: true},
		{Locator: second, Type: domain.SourceCSV, AllowLocal: true},
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || len(results[0].Records) != 1 {
		t.Fatalf("first source: %+v", results[0])
	}
	var srcErr *domain.SourceError
	if !errors.As(results[1].Err, &srcErr) || srcErr.Stage != "extract" {
		t.Fatalf("expected extract failure for missing file, got %v", results[1].Err)
	}
	if results[2].Source.Locator != second || len(results[2].Records) != 2 {
		t.Fatalf("third source: %+v", results[2])
	}
}
