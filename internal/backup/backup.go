// Package backup ranks alternate suppliers for a product.
package backup

import (
	"sort"
	"strings"

	"CatalogSync/internal/domain"
)

// Rank filters pool by criteria and orders the survivors by quality score,
// best first. The product's current supplier and inactive suppliers never
// qualify.
func Rank(product domain.Product, pool []domain.Supplier, criteria domain.BackupCriteria) domain.BackupResult {
	res := domain.BackupResult{
		ProductKey: domain.KeyOf(product).String(),
		Candidates: []domain.Supplier{},
	}

	current := domain.NormalizeKeyPart(product.SupplierID)
	for _, s := range pool {
		if s.Status != domain.SupplierActive {
			continue
		}
		if current != "" && domain.NormalizeKeyPart(s.ID) == current {
			continue
		}
		if s.QualityScore < criteria.MinScore {
			continue
		}
		if criteria.MaxShippingDays > 0 && (s.ShippingDays <= 0 || s.ShippingDays > criteria.MaxShippingDays) {
			continue
		}
		if !countryAllowed(criteria.Countries, s.Country) {
			continue
		}
		res.Candidates = append(res.Candidates, s)
	}

	sort.SliceStable(res.Candidates, func(i, j int) bool {
		a, b := res.Candidates[i], res.Candidates[j]
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	if len(res.Candidates) > 0 {
		top := res.Candidates[0]
		res.Found = true
		res.Recommendation = &top
	}
	return res
}

func countryAllowed(allowed []string, country string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, c := range allowed {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(country)) {
			return true
		}
	}
	return false
}
