package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/internal/domain"
)

const minSuggestionQueryLen = 2

// Resolver turns a free-text query into one resolved track
type Resolver struct {
	catalog domain.CatalogProvider
	search  domain.SearchProvider
	ranker  *Ranker
	config  *domain.SearchConfig
	logger  *zap.Logger
}

// NewResolver creates a resolver. catalog may be nil, in which case the media
// search is used directly.
func NewResolver(
	catalog domain.CatalogProvider,
	search domain.SearchProvider,
	ranker *Ranker,
	config *domain.SearchConfig,
	logger *zap.Logger,
) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		catalog: catalog,
		search:  search,
		ranker:  ranker,
		config:  config,
		logger:  logger,
	}
}

// Resolve asks the catalog first and falls back to ranked media search
func (r *Resolver) Resolve(ctx context.Context, query string) (domain.ResolvedTrack, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.ResolvedTrack{}, fmt.Errorf("%w: empty query", domain.ErrNotFound)
	}

	if r.catalog != nil {
		track, err := r.searchCatalog(ctx, query)
		switch {
		case err != nil:
			r.logger.Warn("Catalog search failed, falling back to media search",
				zap.String("provider", r.catalog.Name()),
				zap.String("query", query),
				zap.Error(err))
		case track == nil:
			r.logger.Info("Catalog returned no match, falling back to media search",
				zap.String("provider", r.catalog.Name()),
				zap.String("query", query))
		default:
			r.logger.Info("Resolved from catalog",
				zap.String("query", query),
				zap.String("title", track.Title),
				zap.String("artist", track.Artist))
			return *track, nil
		}
	}

	candidates, err := r.searchMedia(ctx, r.mediaQuery(query), r.config.ResultCount)
	if err != nil {
		return domain.ResolvedTrack{}, fmt.Errorf("media search failed: %w", err)
	}
	if len(candidates) == 0 {
		return domain.ResolvedTrack{}, fmt.Errorf("%w: no results for %q", domain.ErrNotFound, query)
	}

	best, err := r.ranker.Rank(candidates, query)
	if err != nil {
		return domain.ResolvedTrack{}, err
	}

	r.logger.Info("Selected media result",
		zap.String("query", query),
		zap.String("title", best.Title),
		zap.Int("score", r.ranker.Score(best)),
		zap.Int("duration", best.DurationSeconds))

	return domain.TrackFromCandidate(best, r.search.Name()), nil
}

// SearchMulti returns unranked media results for autocomplete. Very short
// queries return an empty list.
func (r *Resolver) SearchMulti(ctx context.Context, query string, limit int) ([]domain.Candidate, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSuggestionQueryLen {
		return []domain.Candidate{}, nil
	}
	if limit <= 0 {
		limit = r.config.SuggestionLimit
	}

	candidates, err := r.searchMedia(ctx, r.mediaQuery(query), limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Explain returns the scored media results for a query, best first
func (r *Resolver) Explain(ctx context.Context, query string) ([]ScoredCandidate, error) {
	candidates, err := r.searchMedia(ctx, r.mediaQuery(strings.TrimSpace(query)), r.config.ResultCount)
	if err != nil {
		return nil, err
	}
	return r.ranker.ScoreAll(candidates), nil
}

func (r *Resolver) mediaQuery(query string) string {
	if r.config.QuerySuffix == "" {
		return query
	}
	return query + " " + r.config.QuerySuffix
}

func (r *Resolver) searchCatalog(ctx context.Context, query string) (*domain.ResolvedTrack, error) {
	var track *domain.ResolvedTrack
	err := r.bounded(ctx, r.catalog.Name(), func(ctx context.Context) error {
		var err error
		track, err = r.catalog.SearchStructured(ctx, query)
		return err
	})
	return track, err
}

func (r *Resolver) searchMedia(ctx context.Context, query string, limit int) ([]domain.Candidate, error) {
	var results []domain.Candidate
	err := r.bounded(ctx, r.search.Name(), func(ctx context.Context) error {
		var err error
		results, err = r.search.Search(ctx, query, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(results))
	for _, c := range results {
		if c.RawIdentifier == "" && c.SourceURL == "" {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// bounded runs fn under the metadata timeout and reports an exceeded bound
// as a ProviderTimeoutError
func (r *Resolver) bounded(ctx context.Context, provider string, fn func(context.Context) error) error {
	timeout := r.config.MetadataTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.ProviderTimeoutError{Provider: provider, Timeout: timeout}
	}
	return err
}
