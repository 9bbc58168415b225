package search

import (
	"context"
	"fmt"
	"log/slog"

	"CaseCollector/internal/domain"
	"CaseCollector/internal/ports"
	"CaseCollector/internal/scanner"
)

// StrategySource implements ports.Searcher by routing each query to the provider configured for its source type.
type StrategySource struct {
	registry  *scanner.Registry
	providers map[string]string
	logger    *slog.Logger
}

var _ ports.Searcher = (*StrategySource)(nil)

// NewStrategySource wires the provider registry with the source-type mapping from config.
func NewStrategySource(reg *scanner.Registry, providers map[string]string, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:  reg,
		providers: providers,
		logger:    log,
	}
}

// Search resolves the provider and stamps source type and term on items that lack them.
func (s *StrategySource) Search(ctx context.Context, query ports.SearchQuery) ([]domain.RawItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("provider registry is not configured")
	}

	name, ok := s.providers[string(query.SourceType)]
	if !ok {
		return nil, fmt.Errorf("no provider configured for source %s", query.SourceType)
	}
	provider, err := s.registry.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", query.SourceType, err)
	}

	s.debug("search", "provider", name, "term", query.Term, "source", query.SourceType, "count", query.Count)
	items, err := provider.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %s via %s: %w", query.Term, name, err)
	}

	for i := range items {
		if items[i].SourceType == "" {
			items[i].SourceType = query.SourceType
		}
		if items[i].SearchTerm == "" {
			items[i].SearchTerm = query.Term
		}
	}
	s.debug("provider produced items", "provider", name, "term", query.Term, "count", len(items))
	return items, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
