package extract

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"CatalogSync/internal/domain"
)

// Canonical keys extractors use inside a RawRecord. Values stay untyped until
// the field mapper coerces them.
const (
	FieldID            = "id"
	FieldSKU           = "sku"
	FieldTitle         = "title"
	FieldDescription   = "description"
	FieldPrice         = "price"
	FieldOriginalPrice = "original_price"
	FieldCost          = "cost"
	FieldCurrency      = "currency"
	FieldImages        = "images"
	FieldVideos        = "videos"
	FieldStock         = "stock"
	FieldAvailability  = "availability"
	FieldCategory      = "category"
	FieldBrand         = "brand"
	FieldVariants      = "variants"
	FieldReviews       = "reviews"
	FieldOptions       = "options"
	FieldURL           = "url"
)

// MultiValued lists the keys whose values are unioned rather than coalesced.
var MultiValued = map[string]bool{
	FieldImages:  true,
	FieldVideos:  true,
	FieldReviews: true,
}

// RawRecord is a source-specific key/value bag that lives for one run.
type RawRecord map[string]any

// Has reports whether key holds a non-empty value.
func (r RawRecord) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// Origin names the strategy a partial came from.
type Origin string

const (
	OriginStructured Origin = "structured"
	OriginFeed       Origin = "feed"
	OriginEmbedded   Origin = "embedded"
	OriginMarkup     Origin = "markup"
	OriginFallback   Origin = "fallback"
)

// Rank orders origins by trust; lower wins.
func (o Origin) Rank() int {
	switch o {
	case OriginStructured, OriginFeed:
		return 0
	case OriginEmbedded:
		return 1
	case OriginMarkup:
		return 2
	default:
		return 3
	}
}

// Partial is the field set one strategy salvaged for a record.
type Partial struct {
	Origin Origin
	Fields RawRecord
}

// Record groups every partial extraction of one product.
type Record struct {
	SourceURL string
	Partials  []Partial
}

// Sorted returns the partials in trust order, stable for equal ranks.
func (r Record) Sorted() []Partial {
	out := append([]Partial(nil), r.Partials...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Origin.Rank() < out[j].Origin.Rank()
	})
	return out
}

// Source describes what to extract from.
type Source struct {
	Locator  string
	Type     domain.SourceType
	Platform string
	Auth     domain.Credentials
	// Mapping maps a canonical key to one or more source keys/columns,
	// separated by "|" and tried in order.
	Mapping map[string]string
	Options map[string]string
	// AllowLocal lets a non-URL locator be read from the local filesystem.
	// Only trusted callers set it.
	AllowLocal bool
}

// SourceRecords is the outcome of reading one source.
type SourceRecords struct {
	Source  Source
	Records []Record
	Err     error
}

// Extractor is one pluggable extraction strategy per source type.
type Extractor interface {
	Name() string
	Types() []domain.SourceType
	// Extract never fails on partially malformed input; an error means the
	// source could not be read at all.
	Extract(ctx context.Context, src Source) ([]Record, error)
}

// Registry keeps a mapping from source types to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[domain.SourceType]Extractor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: map[domain.SourceType]Extractor{}}
}

// Register adds or replaces an extractor for each type it handles.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.extractors == nil {
		r.extractors = map[domain.SourceType]Extractor{}
	}
	for _, t := range e.Types() {
		r.extractors[t] = e
	}
}

// Resolve returns the extractor for a source type.
func (r *Registry) Resolve(t domain.SourceType) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.extractors[t]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNoExtractor, t)
}
