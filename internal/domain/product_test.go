package domain

import "testing"

func TestKeyOfNormalizesSKU(t *testing.T) {
	t.Parallel()

	a := KeyOf(Product{OwnerID: "Owner-1", SupplierID: "sup", SKU: "ABC-1 "})
	b := KeyOf(Product{OwnerID: "owner-1 ", SupplierID: "SUP", SKU: "abc-1"})
	if a != b {
		t.Fatalf("expected equal keys, got %v and %v", a, b)
	}
}

func TestKeyOfFallsBackToTitle(t *testing.T) {
	t.Parallel()

	k := KeyOf(Product{OwnerID: "o", SupplierID: "s", Title: "  Blue Mug "})
	if k.SKU != "" || k.Title != "blue mug" {
		t.Fatalf("unexpected title key: %+v", k)
	}
	if k.Supplier != "" {
		t.Fatalf("title key must not carry supplier: %+v", k)
	}
}

func TestIdentityKeyRoundTrip(t *testing.T) {
	t.Parallel()

	for _, k := range []IdentityKey{
		{Owner: "o", Supplier: "s", SKU: "abc-1"},
		{Owner: "o", Title: "blue mug"},
	} {
		parsed, ok := ParseIdentityKey(k.String())
		if !ok || parsed != k {
			t.Fatalf("round trip of %v gave %v (%v)", k, parsed, ok)
		}
	}

	if _, ok := ParseIdentityKey("garbage"); ok {
		t.Fatalf("expected garbage to be rejected")
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	p := Product{
		Price:    Float(10),
		Images:   []string{"a"},
		Variants: []Variant{{SKU: "v", Options: map[string]string{"color": "red"}}},
	}
	c := p.Clone()
	*c.Price = 20
	c.Images[0] = "b"
	c.Variants[0].Options["color"] = "blue"

	if *p.Price != 10 || p.Images[0] != "a" || p.Variants[0].Options["color"] != "red" {
		t.Fatalf("clone aliased the original: %+v", p)
	}
}
