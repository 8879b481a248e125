package scoring

import (
	"strings"
	"testing"

	"CatalogSync/internal/domain"
)

func TestScoreProduct(t *testing.T) {
	t.Parallel()

	full := domain.Product{
		Description: strings.Repeat("a", 120),
		Images:      []string{"1", "2", "3", "4", "5", "6"},
		Variants:    []domain.Variant{{SKU: "v"}},
		Reviews:     []domain.Review{{Text: "ok"}},
	}

	cases := []struct {
		name string
		p    domain.Product
		w    ProductWeights
		want float64
	}{
		{"empty", domain.Product{}, DefaultProductWeights, 0},
		{"complete", full, DefaultProductWeights, 100},
		{"short description", domain.Product{Description: "short", Images: []string{"1"}}, DefaultProductWeights, 10},
		{"clamped", full, ProductWeights{Description: 80, ImageEach: 50, MaxImages: 2}, 100},
		{"custom weights", domain.Product{Reviews: []domain.Review{{Text: "x"}}}, ProductWeights{Reviews: 42}, 42},
	}

	for _, tc := range cases {
		if got := ScoreProduct(tc.p, tc.w); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestScoreSupplier(t *testing.T) {
	t.Parallel()

	stats := domain.OrderStats{
		TotalOrders:          100,
		OnTimeOrders:         90,
		AvgFulfillmentHours:  132,
		PriceRatio:           1.0,
		Complaints:           5,
		Returns:              5,
		AvgSupportReplyHours: 0.5,
	}

	score, b := ScoreSupplier(stats, DefaultSupplierWeights)
	want := domain.ScoreBreakdown{Quality: 90, Speed: 50, Price: 50, Reliability: 90, Support: 100}
	if b != want {
		t.Fatalf("unexpected breakdown %+v", b)
	}
	// 0.25*90 + 0.25*50 + 0.20*50 + 0.20*90 + 0.10*100
	if score != 73 {
		t.Fatalf("expected 73, got %v", score)
	}
}

func TestScoreSupplierWithoutHistory(t *testing.T) {
	t.Parallel()

	score, b := ScoreSupplier(domain.OrderStats{}, DefaultSupplierWeights)
	if score != 50 || b.Speed != 50 || b.Quality != 50 {
		t.Fatalf("expected neutral score, got %v %+v", score, b)
	}
}

func TestCompositeBounds(t *testing.T) {
	t.Parallel()

	top := domain.ScoreBreakdown{Quality: 100, Speed: 100, Price: 100, Reliability: 100, Support: 100}
	if got := Composite(top, DefaultSupplierWeights); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := Composite(domain.ScoreBreakdown{}, DefaultSupplierWeights); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
