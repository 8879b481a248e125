// Package scoring rates product completeness and supplier quality.
//
// Both scores are pure functions over named weights so weight sets can be
// swapped from configuration.
package scoring

import (
	"github.com/shopspring/decimal"

	"CatalogSync/internal/domain"
)

// ProductWeights weigh completeness signals; they should sum to 100.
type ProductWeights struct {
	Description          float64 `yaml:"description"`
	DescriptionMinLength int     `yaml:"descriptionMinLength"`
	ImageEach            float64 `yaml:"imageEach"`
	MaxImages            int     `yaml:"maxImages"`
	Variants             float64 `yaml:"variants"`
	Reviews              float64 `yaml:"reviews"`
}

// DefaultProductWeights is the standard completeness scale.
var DefaultProductWeights = ProductWeights{
	Description:          30,
	DescriptionMinLength: 100,
	ImageEach:            10,
	MaxImages:            4,
	Variants:             15,
	Reviews:              15,
}

// ScoreProduct returns the completeness score of p in [0,100].
func ScoreProduct(p domain.Product, w ProductWeights) float64 {
	var score float64
	if len([]rune(p.Description)) >= w.DescriptionMinLength && p.Description != "" {
		score += w.Description
	}
	images := len(p.Images)
	if w.MaxImages > 0 && images > w.MaxImages {
		images = w.MaxImages
	}
	score += float64(images) * w.ImageEach
	if len(p.Variants) > 0 {
		score += w.Variants
	}
	if len(p.Reviews) > 0 {
		score += w.Reviews
	}
	return round2(clamp(score))
}

// SupplierWeights weigh the supplier sub-scores; they sum to 1.
type SupplierWeights struct {
	Quality     float64 `yaml:"quality"`
	Speed       float64 `yaml:"speed"`
	Price       float64 `yaml:"price"`
	Reliability float64 `yaml:"reliability"`
	Support     float64 `yaml:"support"`
}

// DefaultSupplierWeights is the standard composite.
var DefaultSupplierWeights = SupplierWeights{
	Quality:     0.25,
	Speed:       0.25,
	Price:       0.20,
	Reliability: 0.20,
	Support:     0.10,
}

const neutral = 50

// Breakdown derives the normalized sub-scores from order history. Signals
// that cannot be computed score neutral.
func Breakdown(s domain.OrderStats) domain.ScoreBreakdown {
	if s.TotalOrders <= 0 {
		return domain.ScoreBreakdown{Quality: neutral, Speed: neutral, Price: neutral, Reliability: neutral, Support: neutral}
	}
	orders := float64(s.TotalOrders)
	return domain.ScoreBreakdown{
		Quality:     round2(clamp(100 * (1 - float64(s.Complaints+s.Returns)/orders))),
		Speed:       round2(linear(s.AvgFulfillmentHours, 24, 240)),
		Price:       round2(linear(s.PriceRatio, 0.8, 1.2)),
		Reliability: round2(clamp(100 * float64(s.OnTimeOrders) / orders)),
		Support:     round2(linear(s.AvgSupportReplyHours, 1, 48)),
	}
}

// Composite combines a breakdown into one score.
func Composite(b domain.ScoreBreakdown, w SupplierWeights) float64 {
	return round2(clamp(w.Quality*b.Quality +
		w.Speed*b.Speed +
		w.Price*b.Price +
		w.Reliability*b.Reliability +
		w.Support*b.Support))
}

// ScoreSupplier is Breakdown followed by Composite.
func ScoreSupplier(s domain.OrderStats, w SupplierWeights) (float64, domain.ScoreBreakdown) {
	b := Breakdown(s)
	return Composite(b, w), b
}

// linear maps v to 100 at or below best, 0 at or above worst. A
// non-positive v is missing data.
func linear(v, best, worst float64) float64 {
	switch {
	case v <= 0:
		return neutral
	case v <= best:
		return 100
	case v >= worst:
		return 0
	}
	return 100 * (worst - v) / (worst - best)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
