package domain

// RuleType selects the pricing formula.
type RuleType string

const (
	RulePercentageMarkup RuleType = "percentageMarkup"
	RuleFixedMarkup      RuleType = "fixedMarkup"
	RuleCompetitive      RuleType = "competitive"
	RuleDynamic          RuleType = "dynamic"
)

// RuleConditions scope a rule. Empty fields do not constrain.
type RuleConditions struct {
	Category   string   `json:"category,omitempty" yaml:"category"`
	MinPrice   *float64 `json:"minPrice,omitempty" yaml:"minPrice"`
	MaxPrice   *float64 `json:"maxPrice,omitempty" yaml:"maxPrice"`
	SupplierID string   `json:"supplierId,omitempty" yaml:"supplierId"`
}

// PricingRule is one configured pricing rule.
type PricingRule struct {
	ID         string         `json:"id" yaml:"id"`
	Type       RuleType       `json:"type" yaml:"type"`
	Value      float64        `json:"value" yaml:"value"`
	Conditions RuleConditions `json:"conditions" yaml:"conditions"`
}

// PricingScope selects the products a pricing run touches.
type PricingScope struct {
	OwnerID    string   `json:"ownerId,omitempty"`
	SupplierID string   `json:"supplierId,omitempty"`
	Category   string   `json:"category,omitempty"`
	ProductIDs []string `json:"productIds,omitempty"`
}

// PriceUpdate is an emitted price change.
type PriceUpdate struct {
	ProductID string   `json:"productId"`
	SKU       string   `json:"sku"`
	RuleID    string   `json:"ruleId"`
	OldPrice  *float64 `json:"oldPrice"`
	NewPrice  float64  `json:"newPrice"`
}

// PricingResult summarizes a pricing run.
type PricingResult struct {
	Success   bool          `json:"success"`
	Total     int           `json:"total"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	Updates   []PriceUpdate `json:"updates,omitempty"`
	ErrorList []string      `json:"errorList,omitempty"`
}
