package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"CatalogSync/internal/domain"
)

func TestPriceSendsProductAndRule(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price" || r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var req priceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"price": *req.Cost * req.RuleValue})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 0)
	price, err := c.Price(context.Background(),
		domain.Product{SKU: "A", Cost: domain.Float(10)},
		domain.PricingRule{ID: "dyn", Type: domain.RuleDynamic, Value: 1.5})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price != 15 {
		t.Fatalf("expected 15, got %v", price)
	}
}

func TestPriceFailsOnStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "", 0).Price(context.Background(), domain.Product{}, domain.PricingRule{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPriceRequiresPrice(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "", 0).Price(context.Background(), domain.Product{}, domain.PricingRule{}); err == nil {
		t.Fatalf("expected error for empty response")
	}
}
