package backup

import (
	"testing"

	"CatalogSync/internal/domain"
)

func supplier(id string, score float64) domain.Supplier {
	return domain.Supplier{ID: id, Name: id, Status: domain.SupplierActive, QualityScore: score, Country: "DE", ShippingDays: 5}
}

func TestRankByScore(t *testing.T) {
	t.Parallel()

	pool := []domain.Supplier{supplier("c", 40), supplier("a", 90), supplier("b", 70)}
	res := Rank(domain.Product{SKU: "x"}, pool, domain.BackupCriteria{MinScore: 60})

	if !res.Found || len(res.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", res.Candidates)
	}
	if res.Candidates[0].QualityScore != 90 || res.Candidates[1].QualityScore != 70 {
		t.Fatalf("unexpected order %+v", res.Candidates)
	}
	if res.Recommendation == nil || res.Recommendation.QualityScore != 90 {
		t.Fatalf("unexpected recommendation %+v", res.Recommendation)
	}
}

func TestRankFilters(t *testing.T) {
	t.Parallel()

	slow := supplier("slow", 95)
	slow.ShippingDays = 30
	foreign := supplier("foreign", 95)
	foreign.Country = "CN"
	off := supplier("off", 99)
	off.Status = domain.SupplierDisconnected
	current := supplier("current", 99)

	res := Rank(domain.Product{SupplierID: "current"},
		[]domain.Supplier{slow, foreign, off, current, supplier("ok", 80)},
		domain.BackupCriteria{MaxShippingDays: 10, Countries: []string{"de"}})

	if len(res.Candidates) != 1 || res.Candidates[0].ID != "ok" {
		t.Fatalf("expected only ok, got %+v", res.Candidates)
	}
}

func TestRankNoCandidates(t *testing.T) {
	t.Parallel()

	res := Rank(domain.Product{}, []domain.Supplier{supplier("a", 10)}, domain.BackupCriteria{MinScore: 50})
	if res.Found || res.Recommendation != nil || res.Candidates == nil || len(res.Candidates) != 0 {
		t.Fatalf("expected explicit empty result, got %+v", res)
	}
}

func TestRankTieBreak(t *testing.T) {
	t.Parallel()

	b := supplier("2", 80)
	b.Name = "Beta"
	a := supplier("1", 80)
	a.Name = "Alpha"
	res := Rank(domain.Product{}, []domain.Supplier{b, a}, domain.BackupCriteria{})
	if res.Candidates[0].Name != "Alpha" {
		t.Fatalf("expected name tie-break, got %+v", res.Candidates)
	}
}
