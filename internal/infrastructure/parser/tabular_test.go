package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
)

func writeFile(t *testing.T, name string, body []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestTabularCSVMultiColumnMapping(t *testing.T) {
	t.Parallel()

	csvBody := "\ufeffSKU;Name;Short Name;Price;Image;Gallery;Option:Size\n" +
		"A-1;;Lamp;1.299,50;a.jpg;b.jpg|a.jpg;S|M\n" +
		"A-2;Desk;Other;12;c.jpg;;\n"
	path := writeFile(t, "feed.csv", []byte(csvBody))

	ex := NewTabularExtractor(nil, TabularConfig{}, nil)
	records, err := ex.Extract(context.Background(), extract.Source{
		Locator:    path,
		Type:       domain.SourceCSV,
		Mapping:    map[string]string{"title": "Name|Short Name", "images": "Image|Gallery"},
		AllowLocal: true,
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0].Partials[0].Fields
	if first["sku"] != "A-1" || first["title"] != "Lamp" || first["price"] != "1.299,50" {
		t.Fatalf("unexpected first row %v", first)
	}
	images, _ := first["images"].([]any)
	if len(images) != 2 || images[0] != "a.jpg" || images[1] != "b.jpg" {
		t.Fatalf("expected unioned images, got %v", first["images"])
	}
	opts, _ := first["options"].(map[string]any)
	if sizes, _ := opts["size"].([]any); len(sizes) != 2 {
		t.Fatalf("expected size option group, got %v", first["options"])
	}

	if second := records[1].Partials[0].Fields; second["title"] != "Desk" {
		t.Fatalf("first declared column should win, got %v", second["title"])
	}
}

func TestTabularCSVEncoding(t *testing.T) {
	t.Parallel()

	encoded, err := charmap.Windows1251.NewEncoder().String("sku,title,price\nR-1,Лампа,500\n")
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	path := writeFile(t, "feed.csv", []byte(encoded))

	records, err := NewTabularExtractor(nil, TabularConfig{Encoding: "windows-1251"}, nil).
		Extract(context.Background(), extract.Source{Locator: path, Type: domain.SourceCSV, AllowLocal: true})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := records[0].Partials[0].Fields["title"]; got != "Лампа" {
		t.Fatalf("expected decoded title, got %v", got)
	}
}

func TestTabularXML(t *testing.T) {
	t.Parallel()

	xmlBody := `<?xml version="1.0" encoding="UTF-8"?>
<yml_catalog><shop><offers>
  <offer id="X1" available="true">
    <name>Kettle</name>
    <price>25.00</price>
    <picture>k1.jpg</picture>
    <picture>k2.jpg</picture>
    <vendor>Boil</vendor>
    <param name="Color">Red</param>
  </offer>
  <offer id="X2" available="false"><name>Cup</name><price>3</price></offer>
</offers></shop></yml_catalog>`
	path := writeFile(t, "feed.xml", []byte(xmlBody))

	records, err := NewTabularExtractor(nil, TabularConfig{}, nil).Extract(context.Background(), extract.Source{
		Locator:    path,
		Type:       domain.SourceXML,
		Mapping:    map[string]string{"options.color": "param.color"},
		AllowLocal: true,
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(records))
	}

	first := records[0].Partials[0].Fields
	if first["sku"] != "X1" || first["title"] != "Kettle" || first["brand"] != "Boil" || first["availability"] != "true" {
		t.Fatalf("unexpected offer %v", first)
	}
	if pics, _ := first["images"].([]any); len(pics) != 2 {
		t.Fatalf("expected 2 pictures, got %v", first["images"])
	}
	if opts, _ := first["options"].(map[string]any); opts["color"] == nil {
		t.Fatalf("expected color option, got %v", first["options"])
	}
}

func TestDelimiterDetection(t *testing.T) {
	t.Parallel()

	cases := map[string]rune{
		"a;b;c\n1;2;3": ';',
		"a,b,c\n1,2,3": ',',
		"a\tb\tc":      '\t',
	}
	for body, want := range cases {
		if got := delimiter("", []byte(body)); got != want {
			t.Fatalf("%q: expected %q, got %q", body, want, got)
		}
	}
	if got := delimiter("tab", nil); got != '\t' {
		t.Fatalf("expected configured tab")
	}
}

func TestTabularRefusesLocalFileUnlessAllowed(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "feed.csv", []byte("sku,title\nA-1,Lamp\n"))
	_, err := NewTabularExtractor(nil, TabularConfig{}, nil).
		Extract(context.Background(), extract.Source{Locator: path, Type: domain.SourceCSV})
	if !errors.Is(err, domain.ErrInvalidLocator) {
		t.Fatalf("expected invalid locator, got %v", err)
	}
}
