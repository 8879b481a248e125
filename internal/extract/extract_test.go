package extract

import (
	"context"
	"errors"
	"testing"

	"CatalogSync/internal/domain"
)

type stubExtractor struct{}

func (stubExtractor) Name() string { return "stub" }

func (stubExtractor) Types() []domain.SourceType {
	return []domain.SourceType{domain.SourceCSV, domain.SourceXML}
}

func (stubExtractor) Extract(context.Context, Source) ([]Record, error) { return nil, nil }

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubExtractor{})

	for _, typ := range []domain.SourceType{domain.SourceCSV, domain.SourceXML} {
		e, err := reg.Resolve(typ)
		if err != nil || e.Name() != "stub" {
			t.Fatalf("resolve %s: %v", typ, err)
		}
	}

	if _, err := reg.Resolve(domain.SourceScraping); !errors.Is(err, domain.ErrNoExtractor) {
		t.Fatalf("expected ErrNoExtractor, got %v", err)
	}
}

func TestRecordSortedByTrust(t *testing.T) {
	t.Parallel()

	rec := Record{Partials: []Partial{
		{Origin: OriginFallback},
		{Origin: OriginMarkup},
		{Origin: OriginEmbedded},
		{Origin: OriginStructured},
	}}

	got := rec.Sorted()
	want := []Origin{OriginStructured, OriginEmbedded, OriginMarkup, OriginFallback}
	for i := range want {
		if got[i].Origin != want[i] {
			t.Fatalf("position %d: got %s want %s", i, got[i].Origin, want[i])
		}
	}
	if rec.Partials[0].Origin != OriginFallback {
		t.Fatalf("Sorted must not reorder the receiver")
	}
}

func TestRawRecordHas(t *testing.T) {
	t.Parallel()

	r := RawRecord{"a": "", "b": "x", "c": []any{}, "d": 0.0, "e": nil}
	if r.Has("a") || !r.Has("b") || r.Has("c") || !r.Has("d") || r.Has("e") || r.Has("missing") {
		t.Fatalf("unexpected Has results for %v", r)
	}
}
