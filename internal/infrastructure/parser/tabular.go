package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/ports"
)

const optionPrefix = "options."

// defaultTabularMapping maps canonical fields onto common column and
// element names; matching is case-insensitive.
var defaultTabularMapping = map[string]string{
	extract.FieldSKU:           "sku|article|vendorcode|code|@id|id",
	extract.FieldTitle:         "title|name|product_name|model",
	extract.FieldDescription:   "description|desc",
	extract.FieldPrice:         "price|sale_price",
	extract.FieldOriginalPrice: "original_price|compare_at_price|oldprice|old_price|regular_price",
	extract.FieldCost:          "cost|wholesale_price|purchase_price",
	extract.FieldCurrency:      "currency|currencyid",
	extract.FieldImages:        "images|image|image_url|image_link|picture|additional_image_link",
	extract.FieldVideos:        "videos|video|video_url",
	extract.FieldStock:         "stock|quantity|qty|count|inventory",
	extract.FieldAvailability:  "availability|@available|in_stock|available",
	extract.FieldCategory:      "category|product_type|categoryid",
	extract.FieldBrand:         "brand|vendor|manufacturer",
	extract.FieldURL:           "url|link",
}

// TabularConfig holds defaults a source may override through its options
// ("encoding", "delimiter", "header", "itemElement").
type TabularConfig struct {
	Encoding    string
	Delimiter   string
	ItemElement string
}

// TabularExtractor reads CSV exports and XML feeds through a column/element
// mapping table.
type TabularExtractor struct {
	fetcher ports.Fetcher
	cfg     TabularConfig
	logger  *slog.Logger
}

// NewTabularExtractor wires a fetcher and defaults.
func NewTabularExtractor(fetcher ports.Fetcher, cfg TabularConfig, logger *slog.Logger) *TabularExtractor {
	if cfg.ItemElement == "" {
		cfg.ItemElement = "offer|item|product|entry"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TabularExtractor{fetcher: fetcher, cfg: cfg, logger: logger.With("component", "tabular_extractor")}
}

// Name identifies the strategy inside the registry.
func (t *TabularExtractor) Name() string {
	return "tabular"
}

// Types lists the source types handled.
func (t *TabularExtractor) Types() []domain.SourceType {
	return []domain.SourceType{domain.SourceCSV, domain.SourceXML}
}

// Extract reads all rows or items of the source.
func (t *TabularExtractor) Extract(ctx context.Context, src extract.Source) ([]extract.Record, error) {
	body, final, err := load(ctx, t.fetcher, src, src.Locator)
	if err != nil {
		return nil, err
	}
	if final == "" {
		final = src.Locator
	}

	var rows []row
	switch src.Type {
	case domain.SourceXML:
		rows, err = t.readXML(body, src)
	default:
		rows, err = t.readCSV(body, src)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) > 0 {
		t.logger.Debug("tabular source read", "rows", len(rows), "columns", rows[0].columns())
	}

	mapping := mergeMapping(defaultTabularMapping, src.Mapping)
	records := make([]extract.Record, 0, len(rows))
	for _, r := range rows {
		fields := r.mapFields(mapping)
		if len(fields) == 0 {
			continue
		}
		records = append(records, extract.Record{
			SourceURL: final,
			Partials:  []extract.Partial{{Origin: extract.OriginFeed, Fields: fields}},
		})
	}
	return records, nil
}

// row holds every value seen per lower-cased column or element name.
type row map[string][]string

func (r row) add(name, value string) {
	name = strings.ToLower(strings.TrimSpace(name))
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return
	}
	r[name] = append(r[name], value)
}

// mapFields resolves the mapping for one row. For scalar fields the first
// non-empty column in declared order wins; multi-valued fields union every
// column, splitting cells on '|' or ','.
func (r row) mapFields(mapping map[string]string) extract.RawRecord {
	out := extract.RawRecord{}
	groups := map[string][]any{}

	for field, expr := range mapping {
		cols := alternatives(strings.ToLower(expr))
		switch {
		case strings.HasPrefix(field, optionPrefix):
			name := strings.TrimPrefix(field, optionPrefix)
			for _, col := range cols {
				for _, v := range r[col] {
					for _, part := range splitCell(v) {
						groups[name] = append(groups[name], part)
					}
				}
			}
		case extract.MultiValued[field]:
			seen := seenSet{}
			var all []any
			for _, col := range cols {
				for _, v := range r[col] {
					for _, part := range splitCell(v) {
						if seen.add(part) {
							all = append(all, part)
						}
					}
				}
			}
			if len(all) > 0 {
				out[field] = all
			}
		default:
			for _, col := range cols {
				if vals := r[col]; len(vals) > 0 {
					out[field] = vals[0]
					break
				}
			}
		}
	}

	for name, vals := range r {
		if g := strings.TrimPrefix(name, "option:"); g != name {
			for _, v := range vals {
				for _, part := range splitCell(v) {
					groups[g] = append(groups[g], part)
				}
			}
		}
	}
	if len(groups) > 0 {
		opts := map[string]any{}
		for name, vals := range groups {
			opts[name] = vals
		}
		out[extract.FieldOptions] = opts
	}
	return out
}

func (t *TabularExtractor) decoder(src extract.Source) (encoding.Encoding, error) {
	name := option(src, "encoding", t.cfg.Encoding)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

func (t *TabularExtractor) readCSV(body []byte, src extract.Source) ([]row, error) {
	enc, err := t.decoder(src)
	if err != nil {
		return nil, err
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), body)
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = delimiter(option(src, "delimiter", t.cfg.Delimiter), decoded)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	hasHeader := option(src, "header", "true") != "false"
	var header []string
	var rows []row
	line := 0

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			t.logger.Warn("skip malformed csv row", "line", line, "error", err)
			continue
		}
		if header == nil && hasHeader {
			header = make([]string, len(rec))
			for i, h := range rec {
				header[i] = strings.TrimSpace(h)
			}
			continue
		}

		r := row{}
		for i, cell := range rec {
			name := strconv.Itoa(i)
			if i < len(header) && header[i] != "" {
				name = header[i]
			}
			r.add(name, cell)
		}
		if len(r) > 0 {
			rows = append(rows, r)
		}
	}

	if hasHeader && header == nil {
		return nil, fmt.Errorf("csv has no header row")
	}
	return rows, nil
}

// delimiter returns the configured delimiter or the candidate occurring
// most often in the first line.
func delimiter(configured string, body []byte) rune {
	switch configured {
	case `\t`, "tab":
		return '\t'
	case "":
	default:
		return []rune(configured)[0]
	}

	first := body
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		first = body[:i]
	}
	best, bestCount := ',', 0
	for _, c := range []rune{';', ',', '\t', '|'} {
		if n := bytes.Count(first, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func (t *TabularExtractor) readXML(body []byte, src extract.Source) ([]row, error) {
	items := map[string]bool{}
	for _, name := range alternatives(option(src, "itemElement", t.cfg.ItemElement)) {
		items[strings.ToLower(name)] = true
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, err
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	}

	var (
		rows    []row
		current row
		stack   []xml.StartElement
		texts   []string
		depth   int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(rows) == 0 {
				return nil, fmt.Errorf("parse xml: %w", err)
			}
			t.logger.Warn("xml feed truncated, keeping parsed items", "items", len(rows), "error", err)
			break
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if current == nil {
				if items[strings.ToLower(el.Name.Local)] {
					current = row{}
					depth = 0
					for _, a := range el.Attr {
						current.add("@"+a.Name.Local, a.Value)
					}
				}
				continue
			}
			depth++
			stack = append(stack, el)
			texts = append(texts, "")
		case xml.CharData:
			if current != nil && len(texts) > 0 {
				texts[len(texts)-1] += string(el)
			}
		case xml.EndElement:
			if current == nil {
				continue
			}
			if depth == 0 {
				rows = append(rows, current)
				current = nil
				continue
			}
			start := stack[len(stack)-1]
			text := texts[len(texts)-1]
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]
			depth--

			name := start.Name.Local
			if attr := attrValue(start, "name"); attr != "" && strings.EqualFold(name, "param") {
				name = "param." + attr
			}
			current.add(name, text)
			for _, a := range start.Attr {
				current.add(start.Name.Local+"@"+a.Name.Local, a.Value)
			}
		}
	}
	return rows, nil
}

func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// columns lists a row's names in order; used in debug logging.
func (r row) columns() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
