package domain

import (
	"strings"
	"time"
)

// SourceType classifies where a catalog comes from.
type SourceType string

const (
	SourceAPI      SourceType = "api"
	SourceJSON     SourceType = "json"
	SourceCSV      SourceType = "csv"
	SourceXML      SourceType = "xml"
	SourceScraping SourceType = "scraping"
	SourceUnknown  SourceType = "unknown"
)

// ProductStatus tracks whether a product can be sold.
type ProductStatus string

const (
	StatusActive     ProductStatus = "active"
	StatusOutOfStock ProductStatus = "outOfStock"
	StatusDisabled   ProductStatus = "disabled"
)

// Product is the canonical, schema-conformant catalog record.
//
// Cost is what the supplier charges (the supplier's listed price unless the
// feed carries an explicit cost); Price is the selling price maintained by
// the pricing engine.
type Product struct {
	ID            string
	OwnerID       string
	SupplierID    string
	SKU           string
	Title         string
	Description   string
	Price         *float64
	OriginalPrice *float64
	Cost          *float64
	Currency      string
	Images        []string
	Videos        []string
	Stock         int
	// StockUnknown marks a mapped record whose source gave neither a
	// quantity nor an availability signal. Only the sync reconciler reads it.
	StockUnknown  bool
	Category      string
	Brand         string
	Variants      []Variant
	Reviews       []Review
	Status        ProductStatus
	QualityScore  float64
	SupplierScore float64
	SourceType    SourceType
	SourceURL     string
	ImportedAt    time.Time
	UpdatedAt     time.Time
}

// Variant is a purchasable option combination of a product.
type Variant struct {
	ID            string
	SKU           string
	Price         *float64
	OriginalPrice *float64
	Stock         int
	Options       map[string]string
	Image         string
	Available     bool
	Synthetic     bool
}

// Review is a customer review attached to a product.
type Review struct {
	Author string
	Rating float64
	Text   string
}

// IdentityKey matches a product for deduplication and sync.
type IdentityKey struct {
	Owner    string
	Supplier string
	SKU      string
	Title    string
}

// NormalizeKeyPart lower-cases and trims an identity component.
func NormalizeKeyPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// KeyOf derives the identity key: (owner, supplier, sku) or, without a sku,
// (owner, title).
func KeyOf(p Product) IdentityKey {
	sku := NormalizeKeyPart(p.SKU)
	if sku != "" {
		return IdentityKey{
			Owner:    NormalizeKeyPart(p.OwnerID),
			Supplier: NormalizeKeyPart(p.SupplierID),
			SKU:      sku,
		}
	}
	return IdentityKey{
		Owner: NormalizeKeyPart(p.OwnerID),
		Title: NormalizeKeyPart(p.Title),
	}
}

// String renders the key in a stable textual form usable as a storage column.
func (k IdentityKey) String() string {
	if k.SKU != "" {
		return "sku:" + k.Owner + "|" + k.Supplier + "|" + k.SKU
	}
	return "title:" + k.Owner + "|" + k.Title
}

// ParseIdentityKey reverses IdentityKey.String.
func ParseIdentityKey(s string) (IdentityKey, bool) {
	switch {
	case strings.HasPrefix(s, "sku:"):
		parts := strings.SplitN(strings.TrimPrefix(s, "sku:"), "|", 3)
		if len(parts) != 3 || parts[2] == "" {
			return IdentityKey{}, false
		}
		return IdentityKey{Owner: parts[0], Supplier: parts[1], SKU: parts[2]}, true
	case strings.HasPrefix(s, "title:"):
		parts := strings.SplitN(strings.TrimPrefix(s, "title:"), "|", 2)
		if len(parts) != 2 || parts[1] == "" {
			return IdentityKey{}, false
		}
		return IdentityKey{Owner: parts[0], Title: parts[1]}, true
	}
	return IdentityKey{}, false
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (p Product) Clone() Product {
	out := p
	out.Price = cloneFloat(p.Price)
	out.OriginalPrice = cloneFloat(p.OriginalPrice)
	out.Cost = cloneFloat(p.Cost)
	out.Images = append([]string(nil), p.Images...)
	out.Videos = append([]string(nil), p.Videos...)
	out.Reviews = append([]Review(nil), p.Reviews...)
	if p.Variants != nil {
		out.Variants = make([]Variant, len(p.Variants))
		for i, v := range p.Variants {
			v.Price = cloneFloat(v.Price)
			v.OriginalPrice = cloneFloat(v.OriginalPrice)
			if v.Options != nil {
				opts := make(map[string]string, len(v.Options))
				for k, val := range v.Options {
					opts[k] = val
				}
				v.Options = opts
			}
			out.Variants[i] = v
		}
	}
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	OwnerID    string
	SupplierID string
	Category   string
	IDs        []string
}

// Matches reports whether p satisfies the filter.
func (f ProductFilter) Matches(p Product) bool {
	if f.OwnerID != "" && NormalizeKeyPart(f.OwnerID) != NormalizeKeyPart(p.OwnerID) {
		return false
	}
	if f.SupplierID != "" && NormalizeKeyPart(f.SupplierID) != NormalizeKeyPart(p.SupplierID) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(strings.TrimSpace(f.Category), strings.TrimSpace(p.Category)) {
		return false
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == p.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ConflictPolicy tells the storage collaborator how to resolve identity-key
// collisions on upsert.
type ConflictPolicy string

const (
	ConflictSkip    ConflictPolicy = "skip"
	ConflictUpdate  ConflictPolicy = "update"
	ConflictReplace ConflictPolicy = "replace"
)
