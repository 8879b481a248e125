package detector

import (
	"net/url"
	"path"
	"strings"

	"CatalogSync/internal/domain"
)

// Rule tiers, evaluated in this order; the first matching rule wins.
const (
	tierPlatform = iota
	tierSuffix
	tierHeuristic
)

const fallbackConfidence = 50

// PlatformRule recognizes a known platform from its host or path.
type PlatformRule struct {
	Platform     string            `yaml:"platform"`
	HostContains string            `yaml:"hostContains"`
	PathContains string            `yaml:"pathContains"`
	Type         domain.SourceType `yaml:"type"`
	Confidence   int               `yaml:"confidence"`
	Auth         domain.AuthMode   `yaml:"auth"`
	Mapping      map[string]string `yaml:"mapping"`
}

func (r PlatformRule) matches(host, p string) bool {
	if r.HostContains == "" && r.PathContains == "" {
		return false
	}
	if r.HostContains != "" && !strings.Contains(host, strings.ToLower(r.HostContains)) {
		return false
	}
	if r.PathContains != "" && !strings.Contains(p, strings.ToLower(r.PathContains)) {
		return false
	}
	return true
}

// DefaultPlatforms lists the built-in platform rules.
var DefaultPlatforms = []PlatformRule{
	{
		Platform: "shopify", PathContains: "/products.json", Type: domain.SourceJSON, Confidence: 95, Auth: domain.AuthNone,
		Mapping: map[string]string{
			"sku": "variants.0.sku", "title": "title", "description": "body_html", "price": "variants.0.price",
			"original_price": "variants.0.compare_at_price", "images": "images.*.src", "brand": "vendor", "category": "product_type",
		},
	},
	{
		Platform: "woocommerce", PathContains: "/wp-json/wc/", Type: domain.SourceAPI, Confidence: 95, Auth: domain.AuthBasic,
		Mapping: map[string]string{
			"sku": "sku", "title": "name", "description": "description", "price": "price",
			"original_price": "regular_price", "stock": "stock_quantity", "images": "images.*.src", "category": "categories.0.name",
		},
	},
	{Platform: "aliexpress", HostContains: "aliexpress.", Type: domain.SourceScraping, Confidence: 90, Auth: domain.AuthNone},
	{Platform: "amazon", HostContains: "amazon.", Type: domain.SourceScraping, Confidence: 90, Auth: domain.AuthNone},
	{Platform: "etsy", HostContains: "etsy.com", Type: domain.SourceScraping, Confidence: 90, Auth: domain.AuthNone},
	{Platform: "ebay", HostContains: "ebay.", Type: domain.SourceScraping, Confidence: 85, Auth: domain.AuthNone},
}

var suffixRules = []struct {
	ext        string
	typ        domain.SourceType
	confidence int
}{
	{".csv", domain.SourceCSV, 85},
	{".tsv", domain.SourceCSV, 85},
	{".xml", domain.SourceXML, 85},
	{".rss", domain.SourceXML, 80},
	{".json", domain.SourceJSON, 80},
}

var keywordRules = []struct {
	keyword    string
	typ        domain.SourceType
	confidence int
	auth       domain.AuthMode
}{
	{"/api/", domain.SourceAPI, 70, domain.AuthBearer},
	{"graphql", domain.SourceAPI, 65, domain.AuthBearer},
	{"feed", domain.SourceXML, 65, domain.AuthNone},
	{"export", domain.SourceCSV, 60, domain.AuthNone},
	{"catalog.json", domain.SourceJSON, 60, domain.AuthNone},
}

// Detector classifies source locators. It performs no I/O.
type Detector struct {
	platforms []PlatformRule
}

// New builds a detector; extra platform rules are evaluated before the
// built-in ones.
func New(extra []PlatformRule) *Detector {
	platforms := make([]PlatformRule, 0, len(extra)+len(DefaultPlatforms))
	platforms = append(platforms, extra...)
	platforms = append(platforms, DefaultPlatforms...)
	return &Detector{platforms: platforms}
}

// Detect returns the verdict of the first matching rule.
func (d *Detector) Detect(locator string) domain.Detection {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return domain.Detection{Type: domain.SourceUnknown, AuthMode: domain.AuthNone}
	}

	host, p := splitLocator(locator)

	for tier := tierPlatform; tier <= tierHeuristic; tier++ {
		if det, ok := d.evaluate(tier, host, p); ok {
			return det
		}
	}

	return domain.Detection{
		Type:       domain.SourceScraping,
		Platform:   "generic",
		Confidence: fallbackConfidence,
		AuthMode:   domain.AuthNone,
	}
}

func (d *Detector) evaluate(tier int, host, p string) (domain.Detection, bool) {
	switch tier {
	case tierPlatform:
		for _, rule := range d.platforms {
			if rule.matches(host, p) {
				return domain.Detection{
					Type:             rule.Type,
					Platform:         rule.Platform,
					Confidence:       rule.Confidence,
					SuggestedMapping: copyMapping(rule.Mapping),
					AuthMode:         authOrNone(rule.Auth),
				}, true
			}
		}
	case tierSuffix:
		ext := path.Ext(p)
		for _, rule := range suffixRules {
			if ext == rule.ext {
				return domain.Detection{
					Type:       rule.typ,
					Platform:   "generic",
					Confidence: rule.confidence,
					AuthMode:   domain.AuthNone,
				}, true
			}
		}
	case tierHeuristic:
		for _, rule := range keywordRules {
			if strings.Contains(p, rule.keyword) {
				return domain.Detection{
					Type:       rule.typ,
					Platform:   "generic",
					Confidence: rule.confidence,
					AuthMode:   rule.auth,
				}, true
			}
		}
	}
	return domain.Detection{}, false
}

// splitLocator returns the lower-cased host and path; file paths have no host.
// A locator typed without a scheme, such as "amazon.com/dp/X", is read as
// https when its first segment looks like a host name.
func splitLocator(locator string) (string, string) {
	lower := strings.ToLower(locator)
	u, err := url.Parse(lower)
	if err == nil && u.Host == "" && u.Scheme == "" && looksLikeHost(lower) {
		u, err = url.Parse("https://" + lower)
	}
	if err != nil || u.Host == "" {
		return "", strings.SplitN(lower, "?", 2)[0]
	}
	return u.Host, u.Path
}

// looksLikeHost reports whether a scheme-less locator starts with a dotted
// host followed by a path, or with "www.".
func looksLikeHost(locator string) bool {
	if strings.HasPrefix(locator, "www.") {
		return true
	}
	first, _, hasPath := strings.Cut(locator, "/")
	if !hasPath || strings.HasPrefix(first, ".") || strings.ContainsAny(first, "\\:") {
		return false
	}
	dot := strings.LastIndex(first, ".")
	return dot > 0 && dot < len(first)-1
}

func copyMapping(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func authOrNone(a domain.AuthMode) domain.AuthMode {
	if a == "" {
		return domain.AuthNone
	}
	return a
}
