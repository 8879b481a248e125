package mapper

import (
	"testing"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want *float64
	}{
		{"$1,299.50", domain.Float(1299.50)},
		{"1.299,50 €", domain.Float(1299.50)},
		{"12,50", domain.Float(12.50)},
		{"1,299", domain.Float(1299)},
		{"1 234 567,8", domain.Float(1234567.8)},
		{"2.500.000", domain.Float(2500000)},
		{"US$ 19.99", domain.Float(19.99)},
		{"10 - 20", domain.Float(10)},
		{42.0, domain.Float(42)},
		{map[string]any{"amount": "7.5"}, domain.Float(7.5)},
		{"call for price", nil},
		{"", nil},
		{"-5", nil},
		{nil, nil},
	}

	for _, tc := range cases {
		got := ParsePrice(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Fatalf("ParsePrice(%v) = %v, want nil", tc.in, *got)
		case tc.want != nil && got == nil:
			t.Fatalf("ParsePrice(%v) = nil, want %v", tc.in, *tc.want)
		case tc.want != nil && *got != *tc.want:
			t.Fatalf("ParsePrice(%v) = %v, want %v", tc.in, *got, *tc.want)
		}
	}
}

func TestMergePriority(t *testing.T) {
	t.Parallel()

	merged, conflicts := Merge([]extract.Partial{
		{Origin: extract.OriginMarkup, Fields: extract.RawRecord{"title": "C"}},
		{Origin: extract.OriginEmbedded, Fields: extract.RawRecord{"title": "B"}},
		{Origin: extract.OriginStructured, Fields: extract.RawRecord{"title": "A"}},
	})

	if merged["title"] != "A" {
		t.Fatalf("expected structured title to win, got %v", merged["title"])
	}
	if len(conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(conflicts))
	}
	if conflicts[0].Kept != extract.OriginStructured || conflicts[0].Discarded != extract.OriginEmbedded {
		t.Fatalf("unexpected conflict %+v", conflicts[0])
	}
}

func TestMergeSkipsEmptyScalars(t *testing.T) {
	t.Parallel()

	merged, _ := Merge([]extract.Partial{
		{Origin: extract.OriginStructured, Fields: extract.RawRecord{"title": "", "brand": nil}},
		{Origin: extract.OriginMarkup, Fields: extract.RawRecord{"title": "Lamp", "brand": "Lumo"}},
	})
	if merged["title"] != "Lamp" || merged["brand"] != "Lumo" {
		t.Fatalf("expected coalesce past empty values, got %v", merged)
	}
}

func TestMergeUnionsImages(t *testing.T) {
	t.Parallel()

	merged, _ := Merge([]extract.Partial{
		{Origin: extract.OriginMarkup, Fields: extract.RawRecord{"images": []any{"b.jpg", "c.jpg"}}},
		{Origin: extract.OriginStructured, Fields: extract.RawRecord{"images": []any{"a.jpg", "b.jpg"}}},
		{Origin: extract.OriginFallback, Fields: extract.RawRecord{"images": "a.jpg"}},
	})

	got, _ := merged["images"].([]any)
	want := []string{"a.jpg", "b.jpg", "c.jpg"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %v", i, want[i], got[i])
		}
	}
}

func TestMapProduct(t *testing.T) {
	t.Parallel()

	m := New(Options{AssumedInStockQuantity: 3}, nil)
	draft := m.Map(extract.Record{
		SourceURL: "https://shop.example/p/lamp",
		Partials: []extract.Partial{
			{Origin: extract.OriginStructured, Fields: extract.RawRecord{
				"title":        "  Desk   Lamp ",
				"price":        "$1,299.50",
				"images":       []any{"/img/1.jpg", map[string]any{"src": "//cdn.example/2.jpg"}},
				"availability": "https://schema.org/InStock",
				"sku":          "LAMP-1",
			}},
			{Origin: extract.OriginMarkup, Fields: extract.RawRecord{
				"description": "Bright lamp",
				"images":      []any{"https://shop.example/img/1.jpg"},
			}},
		},
	})

	p := draft.Product
	if p.Title != "Desk Lamp" {
		t.Fatalf("unexpected title %q", p.Title)
	}
	if p.Price == nil || *p.Price != 1299.50 || p.Currency != "USD" {
		t.Fatalf("unexpected price %v %s", p.Price, p.Currency)
	}
	if p.Cost == nil || *p.Cost != 1299.50 {
		t.Fatalf("cost should default to supplier price, got %v", p.Cost)
	}
	if p.Stock != 3 || p.Status != domain.StatusActive {
		t.Fatalf("expected assumed stock, got %d %s", p.Stock, p.Status)
	}
	if len(p.Images) != 2 || p.Images[0] != "https://shop.example/img/1.jpg" || p.Images[1] != "https://cdn.example/2.jpg" {
		t.Fatalf("unexpected images %v", p.Images)
	}
}

func TestCoerceStock(t *testing.T) {
	t.Parallel()

	m := New(Options{}, nil)

	if p := m.Coerce(extract.RawRecord{"stock": -4}, "").Product; p.Stock != 0 || p.Status != domain.StatusOutOfStock {
		t.Fatalf("negative stock must clamp to zero, got %d %s", p.Stock, p.Status)
	}
	if p := m.Coerce(extract.RawRecord{"availability": "OutOfStock"}, "").Product; p.Stock != 0 || p.Status != domain.StatusOutOfStock {
		t.Fatalf("out of stock expected, got %d", p.Stock)
	}
	if p := m.Coerce(extract.RawRecord{"stock": "12 left"}, "").Product; p.Stock != 12 {
		t.Fatalf("expected 12, got %d", p.Stock)
	}
	if p := m.Coerce(extract.RawRecord{"title": "x"}, "").Product; p.Status != domain.StatusActive || !p.StockUnknown {
		t.Fatalf("unknown stock keeps product active and flagged, got %s unknown=%v", p.Status, p.StockUnknown)
	}
	if p := m.Coerce(extract.RawRecord{"title": "x", "stock": 0}, "").Product; p.StockUnknown {
		t.Fatalf("explicit zero stock is known")
	}

	assumed := New(Options{AssumedInStockQuantity: 7}, nil)
	for _, text := range []string{"Not available", "Not in stock", "Currently not available", "No stock", "Nicht verfügbar", "out_of_stock"} {
		p := assumed.Coerce(extract.RawRecord{"title": "X", "availability": text}, "").Product
		if p.Stock != 0 || p.Status != domain.StatusOutOfStock {
			t.Fatalf("%q must read as unavailable, got stock=%d status=%s", text, p.Stock, p.Status)
		}
	}
	for _, text := range []string{"In stock", "https://schema.org/InStock", "Available", "pre-order"} {
		p := assumed.Coerce(extract.RawRecord{"title": "X", "availability": text}, "").Product
		if p.Stock != 7 || p.Status != domain.StatusActive {
			t.Fatalf("%q must read as available, got stock=%d status=%s", text, p.Stock, p.Status)
		}
	}
}

func TestCoerceExplicitVariants(t *testing.T) {
	t.Parallel()

	m := New(Options{}, nil)
	p := m.Coerce(extract.RawRecord{
		"sku": "TEE",
		"variants": []any{
			map[string]any{"sku": "TEE-S", "price": "9.99", "stock": 2.0, "options": map[string]any{"size": "S"}},
			map[string]any{"price": 8.5, "inventory_quantity": 0.0},
		},
		"options": []any{
			map[string]any{"name": "size", "values": []any{"S", "M"}},
			map[string]any{"name": "color", "values": []any{"Red", "Blue"}},
		},
	}, "").Product

	if len(p.Variants) != 2 {
		t.Fatalf("explicit variants must win over synthesis, got %d", len(p.Variants))
	}
	if p.Variants[1].SKU != "TEE-2" || p.Variants[1].Available {
		t.Fatalf("unexpected second variant %+v", p.Variants[1])
	}
	if p.Price == nil || *p.Price != 8.5 {
		t.Fatalf("expected lowest variant price, got %v", p.Price)
	}
	if p.Stock != 2 {
		t.Fatalf("expected stock summed from variants, got %d", p.Stock)
	}
}

func TestCoerceSynthesizesVariants(t *testing.T) {
	t.Parallel()

	m := New(Options{MaxVariantCombinations: 4}, nil)
	draft := m.Coerce(extract.RawRecord{
		"sku":   "TEE",
		"price": 10.0,
		"options": map[string]any{
			"size":  []any{"S", "M", "L"},
			"color": []any{"Red", "Blue"},
		},
	}, "")

	if len(draft.Product.Variants) != 4 || !draft.VariantsTruncated {
		t.Fatalf("expected 4 truncated variants, got %d", len(draft.Product.Variants))
	}
	if draft.Product.Variants[0].SKU != "TEE_red_s" {
		t.Fatalf("unexpected first sku %s", draft.Product.Variants[0].SKU)
	}
	if v := draft.Product.Variants[0].Price; v == nil || *v != 10 {
		t.Fatalf("synthetic variant should inherit price, got %v", v)
	}
}
