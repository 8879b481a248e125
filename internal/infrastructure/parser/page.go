package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/ports"
)

// pageStrategy salvages a partial field set from a parsed product page. It
// never fails; an empty record means nothing was found.
type pageStrategy struct {
	origin extract.Origin
	run    func(doc *goquery.Document, seen seenSet) extract.RawRecord
}

// PageExtractor scrapes product pages with several independent strategies
// run concurrently over the same document.
type PageExtractor struct {
	fetcher    ports.Fetcher
	strategies []pageStrategy
	logger     *slog.Logger
}

// NewPageExtractor wires a fetcher. selectors overrides the markup candidate
// selectors per canonical field.
func NewPageExtractor(fetcher ports.Fetcher, selectors map[string][]string, logger *slog.Logger) *PageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	markup := mergeSelectors(defaultSelectors, selectors)
	return &PageExtractor{
		fetcher: fetcher,
		strategies: []pageStrategy{
			{origin: extract.OriginStructured, run: linkedData},
			{origin: extract.OriginEmbedded, run: embeddedState},
			{origin: extract.OriginMarkup, run: func(doc *goquery.Document, _ seenSet) extract.RawRecord {
				return markupFields(doc, markup)
			}},
			{origin: extract.OriginFallback, run: metaFallback},
		},
		logger: logger.With("component", "page_extractor"),
	}
}

// Name identifies the strategy inside the registry.
func (p *PageExtractor) Name() string {
	return "page"
}

// Types lists the source types handled.
func (p *PageExtractor) Types() []domain.SourceType {
	return []domain.SourceType{domain.SourceScraping}
}

// Extract reads one page per locator; extra page URLs may be listed in the
// "urls" option separated by whitespace. Unreachable extra pages are
// skipped.
func (p *PageExtractor) Extract(ctx context.Context, src extract.Source) ([]extract.Record, error) {
	locators := append([]string{src.Locator}, strings.Fields(src.Options["urls"])...)

	var records []extract.Record
	for i, loc := range locators {
		body, final, err := load(ctx, p.fetcher, src, loc)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			p.logger.Warn("skip unreachable page", "url", loc, "error", err)
			continue
		}
		if final == "" {
			final = loc
		}

		rec, err := p.ExtractDocument(ctx, body, final)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			p.logger.Warn("skip unparsable page", "url", loc, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ExtractDocument runs every strategy over one HTML document.
func (p *PageExtractor) ExtractDocument(ctx context.Context, body []byte, pageURL string) (extract.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return extract.Record{}, fmt.Errorf("parse document: %w", err)
	}

	partials := make([]extract.Partial, len(p.strategies))
	g, _ := errgroup.WithContext(ctx)
	for i, s := range p.strategies {
		i, s := i, s
		g.Go(func() error {
			partials[i] = extract.Partial{Origin: s.origin, Fields: s.run(doc, seenSet{})}
			return nil
		})
	}
	_ = g.Wait()

	out := extract.Record{SourceURL: pageURL}
	for _, part := range partials {
		if len(part.Fields) > 0 {
			out.Partials = append(out.Partials, part)
		}
	}
	p.logger.Debug("page extracted", "url", pageURL, "partials", len(out.Partials))
	return out, nil
}

func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
