// Package quality decides whether a mapped product enters the catalog.
package quality

import (
	"strings"

	"CatalogSync/internal/domain"
)

// Rejection reasons, reported in import statistics.
const (
	ReasonMissingTitle = "missing_title"
	ReasonPriceRange   = "price_out_of_range"
	ReasonMinStock     = "insufficient_stock"
	ReasonCategory     = "category_not_allowed"
	ReasonBrand        = "brand_not_allowed"
	ReasonCountry      = "country_not_allowed"
)

// Criteria are the acceptance constraints. Zero values do not constrain.
type Criteria struct {
	MinPrice   *float64 `json:"minPrice,omitempty" yaml:"minPrice"`
	MaxPrice   *float64 `json:"maxPrice,omitempty" yaml:"maxPrice"`
	MinStock   int      `json:"minStock,omitempty" yaml:"minStock"`
	Categories []string `json:"categories,omitempty" yaml:"categories"`
	Brands     []string `json:"brands,omitempty" yaml:"brands"`
	Countries  []string `json:"countries,omitempty" yaml:"countries"`
}

// Verdict is the filter outcome.
type Verdict struct {
	Accepted bool
	Reason   string
}

type predicate struct {
	reason string
	ok     func(p domain.Product, country string, c Criteria) bool
}

// predicates run in this order; the first failure decides the reason.
var predicates = []predicate{
	{ReasonMissingTitle, func(p domain.Product, _ string, _ Criteria) bool {
		return strings.TrimSpace(p.Title) != ""
	}},
	{ReasonPriceRange, func(p domain.Product, _ string, c Criteria) bool {
		if c.MinPrice == nil && c.MaxPrice == nil {
			return true
		}
		if p.Price == nil {
			return false
		}
		if c.MinPrice != nil && *p.Price < *c.MinPrice {
			return false
		}
		return c.MaxPrice == nil || *p.Price <= *c.MaxPrice
	}},
	{ReasonMinStock, func(p domain.Product, _ string, c Criteria) bool {
		return p.Stock >= c.MinStock
	}},
	{ReasonCategory, func(p domain.Product, _ string, c Criteria) bool {
		return allowed(c.Categories, p.Category)
	}},
	{ReasonBrand, func(p domain.Product, _ string, c Criteria) bool {
		return allowed(c.Brands, p.Brand)
	}},
	{ReasonCountry, func(_ domain.Product, country string, c Criteria) bool {
		return allowed(c.Countries, country)
	}},
}

// Evaluate checks p, sourced from a supplier in country, against c.
func Evaluate(p domain.Product, country string, c Criteria) Verdict {
	for _, pr := range predicates {
		if !pr.ok(p, country, c) {
			return Verdict{Reason: pr.reason}
		}
	}
	return Verdict{Accepted: true}
}

func allowed(list []string, v string) bool {
	if len(list) == 0 {
		return true
	}
	v = strings.TrimSpace(v)
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
