package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/infrastructure/fetch"
)

func newFetcher() *fetch.Client {
	return fetch.NewClient(fetch.Config{Timeout: time.Second, Backoff: time.Millisecond}, nil)
}

func TestFeedExtractorFollowsPages(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("page") {
		case "":
			fmt.Fprint(w, `{"products":[{"sku":"A","name":"Alpha","price":"9.50","images":[{"src":"a1.jpg"},{"src":"a2.jpg"}]}],"next":"/api/products?page=2"}`)
		case "2":
			fmt.Fprint(w, `{"data":[{"sku":"B","title":"Beta","variants":[{"price":"4.00","sku":"B-1"}]}],"links":{"next":"/api/products?page=3"}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ex := NewFeedExtractor(newFetcher(), 10, nil)
	records, err := ex.Extract(context.Background(), extract.Source{
		Locator: srv.URL + "/api/products",
		Type:    domain.SourceAPI,
		Auth:    domain.Credentials{Mode: domain.AuthBearer, Token: "secret"},
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected partial results from 2 pages, got %d", len(records))
	}

	first := records[0].Partials[0].Fields
	if first["title"] != "Alpha" || first["price"] != "9.50" {
		t.Fatalf("unexpected first record %v", first)
	}
	images, _ := first["images"].([]any)
	if len(images) != 2 || images[0] != "a1.jpg" {
		t.Fatalf("unexpected images %v", first["images"])
	}
	if records[1].Partials[0].Fields["sku"] != "B" {
		t.Fatalf("unexpected second record %v", records[1].Partials[0].Fields)
	}
}

func TestFeedExtractorFirstPageFailureIsFatal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewFeedExtractor(newFetcher(), 0, nil).Extract(context.Background(), extract.Source{Locator: srv.URL, Type: domain.SourceJSON})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestFeedExtractorMapping(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1,"info":{"label":"Gamma"},"pricing":{"net":"3,50"}}]`)
	}))
	defer srv.Close()

	records, err := NewFeedExtractor(newFetcher(), 1, nil).Extract(context.Background(), extract.Source{
		Locator: srv.URL,
		Type:    domain.SourceJSON,
		Mapping: map[string]string{"title": "info.name|info.label", "price": "pricing.net"},
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	fields := records[0].Partials[0].Fields
	if fields["title"] != "Gamma" || fields["price"] != "3,50" {
		t.Fatalf("unexpected mapping result %v", fields)
	}
	if records[0].Partials[0].Origin != extract.OriginFeed {
		t.Fatalf("unexpected origin %s", records[0].Partials[0].Origin)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"variants": []any{map[string]any{"price": "1"}, map[string]any{"price": "2"}},
	}
	if v := lookup(doc, "variants.1.price"); v != "2" {
		t.Fatalf("expected indexed lookup, got %v", v)
	}
	all, _ := lookup(doc, "variants.*.price").([]any)
	if len(all) != 2 {
		t.Fatalf("expected wildcard fan-out, got %v", all)
	}
	if v := lookup(doc, "variants.5.price"); v != nil {
		t.Fatalf("expected nil for out of range, got %v", v)
	}
}
