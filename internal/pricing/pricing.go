// Package pricing selects and evaluates pricing rules over catalog products.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/ports"
)

// DefaultCompetitiveFactor is the cost multiplier competitive rules use when
// none is configured.
const DefaultCompetitiveFactor = 1.15

var (
	ErrNoCost          = errors.New("product has no cost basis")
	ErrNoDynamicPricer = errors.New("no dynamic pricer configured")
	ErrInvalidPrice    = errors.New("computed price is not positive")
)

// Engine computes selling prices from cost.
type Engine struct {
	competitiveFactor decimal.Decimal
	dynamic           ports.DynamicPricer
	logger            *slog.Logger
}

// NewEngine builds an engine. dynamic may be nil when no dynamic rules are
// in use.
func NewEngine(competitiveFactor float64, dynamic ports.DynamicPricer, logger *slog.Logger) *Engine {
	if competitiveFactor <= 0 {
		competitiveFactor = DefaultCompetitiveFactor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		competitiveFactor: decimal.NewFromFloat(competitiveFactor),
		dynamic:           dynamic,
		logger:            logger.With("component", "pricing"),
	}
}

// Select returns the most specific rule matching p, or nil. Specificity is
// the number of conditions a rule sets; every set condition must match.
// Ties keep the earlier rule.
func Select(p domain.Product, rules []domain.PricingRule) *domain.PricingRule {
	best := -1
	bestScore := -1
	for i, r := range rules {
		score, ok := match(p, r.Conditions)
		if !ok {
			continue
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil
	}
	r := rules[best]
	return &r
}

func match(p domain.Product, c domain.RuleConditions) (int, bool) {
	score := 0
	if c.Category != "" {
		if !strings.EqualFold(strings.TrimSpace(c.Category), strings.TrimSpace(p.Category)) {
			return 0, false
		}
		score++
	}
	if c.MinPrice != nil || c.MaxPrice != nil {
		if p.Cost == nil {
			return 0, false
		}
		if c.MinPrice != nil && *p.Cost < *c.MinPrice {
			return 0, false
		}
		if c.MaxPrice != nil && *p.Cost > *c.MaxPrice {
			return 0, false
		}
		score++
	}
	if c.SupplierID != "" {
		if domain.NormalizeKeyPart(c.SupplierID) != domain.NormalizeKeyPart(p.SupplierID) {
			return 0, false
		}
		score++
	}
	return score, true
}

// Compute evaluates rule for p, rounded to two decimals.
func (e *Engine) Compute(ctx context.Context, p domain.Product, rule domain.PricingRule) (float64, error) {
	if p.Cost == nil {
		return 0, ErrNoCost
	}
	cost := decimal.NewFromFloat(*p.Cost)
	value := decimal.NewFromFloat(rule.Value)

	var price decimal.Decimal
	switch rule.Type {
	case domain.RulePercentageMarkup:
		price = cost.Mul(decimal.NewFromInt(1).Add(value.Div(decimal.NewFromInt(100))))
	case domain.RuleFixedMarkup:
		price = cost.Add(value)
	case domain.RuleCompetitive:
		price = cost.Mul(e.competitiveFactor)
	case domain.RuleDynamic:
		if e.dynamic == nil {
			return 0, ErrNoDynamicPricer
		}
		v, err := e.dynamic.Price(ctx, p, rule)
		if err != nil {
			return 0, fmt.Errorf("dynamic pricer: %w", err)
		}
		price = decimal.NewFromFloat(v)
	default:
		return 0, fmt.Errorf("unknown rule type %q", rule.Type)
	}

	price = price.Round(2)
	if !price.IsPositive() {
		return 0, ErrInvalidPrice
	}
	return price.InexactFloat64(), nil
}

// Apply prices every product and returns the changes to persist. Products
// without a cost basis are skipped; rule evaluation errors are collected.
func (e *Engine) Apply(ctx context.Context, products []domain.Product, rules []domain.PricingRule) domain.PricingResult {
	res := domain.PricingResult{Total: len(products)}

	for _, p := range products {
		if p.Cost == nil {
			res.Skipped++
			continue
		}
		rule := Select(p, rules)
		if rule == nil {
			res.Unchanged++
			continue
		}

		price, err := e.Compute(ctx, p, *rule)
		if err != nil {
			res.Errors++
			res.ErrorList = append(res.ErrorList, fmt.Sprintf("%s: %v", p.SKU, err))
			e.logger.Warn("pricing rule failed", "product", p.ID, "rule", rule.ID, "error", err)
			continue
		}

		if p.Price != nil && decimal.NewFromFloat(*p.Price).Round(2).Equal(decimal.NewFromFloat(price)) {
			res.Unchanged++
			continue
		}

		var old *float64
		if p.Price != nil {
			old = domain.Float(*p.Price)
		}
		res.Updates = append(res.Updates, domain.PriceUpdate{
			ProductID: p.ID,
			SKU:       p.SKU,
			RuleID:    rule.ID,
			OldPrice:  old,
			NewPrice:  price,
		})
	}

	res.Updated = len(res.Updates)
	res.Success = res.Errors == 0 || res.Errors < res.Total
	return res
}
