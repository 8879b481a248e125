package parser

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/ports"
)

// Config carries extractor defaults from configuration.
type Config struct {
	MaxPages  int
	Tabular   TabularConfig
	Selectors map[string][]string
}

// NewRegistry registers every built-in extractor.
func NewRegistry(fetcher ports.Fetcher, cfg Config, log *slog.Logger) *extract.Registry {
	reg := extract.NewRegistry()
	reg.Register(NewFeedExtractor(fetcher, cfg.MaxPages, log))
	reg.Register(NewTabularExtractor(fetcher, cfg.Tabular, log))
	reg.Register(NewPageExtractor(fetcher, cfg.Selectors, log))
	return reg
}

// StrategySource runs the registered extractor for each source.
type StrategySource struct {
	registry *extract.Registry
	logger   *slog.Logger
	parallel int
}

// NewStrategySource wires the registry; parallel bounds how many sources
// are read at once.
func NewStrategySource(reg *extract.Registry, parallel int, log *slog.Logger) *StrategySource {
	if parallel <= 0 {
		parallel = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &StrategySource{
		registry: reg,
		logger:   log.With("component", "strategy_source"),
		parallel: parallel,
	}
}

// Collect resolves the extractor for src.Type and runs it. Any error is a
// fatal source failure.
func (s *StrategySource) Collect(ctx context.Context, src extract.Source) ([]extract.Record, error) {
	if s.registry == nil {
		return nil, &domain.SourceError{Locator: src.Locator, Stage: "resolve", Err: fmt.Errorf("extractor registry is not configured")}
	}

	strategy, err := s.registry.Resolve(src.Type)
	if err != nil {
		return nil, &domain.SourceError{Locator: src.Locator, Stage: "resolve", Err: err}
	}

	s.logger.Debug("collect source", "locator", src.Locator, "type", src.Type, "extractor", strategy.Name())
	records, err := strategy.Extract(ctx, src)
	if err != nil {
		return nil, &domain.SourceError{Locator: src.Locator, Stage: "extract", Err: err}
	}
	s.logger.Debug("source produced records", "locator", src.Locator, "count", len(records))
	return records, nil
}

// CollectAll reads sources concurrently. Failures stay per source; the
// results keep the input order.
func (s *StrategySource) CollectAll(ctx context.Context, sources []extract.Source) []extract.SourceRecords {
	out := make([]extract.SourceRecords, len(sources))
	var g errgroup.Group
	g.SetLimit(s.parallel)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			records, err := s.Collect(ctx, src)
			out[i] = extract.SourceRecords{Source: src, Records: records, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Debug("strategy source done", "sources", len(sources))
	return out
}
