package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/logging"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize = 20
	defaultWorkers   = 4
	defaultOfferTTL  = 24 * time.Hour
)

// ReconciliationConfig holds configuration for remote price reconciliation
type ReconciliationConfig struct {
	BatchSize int
	Workers   int
	CacheTTL  time.Duration
}

// ReconciliationService queries the pricing API in batches and merges the
// returned offers into Part Groups.
type ReconciliationService struct {
	client       domain.PricingClient
	cache        domain.CacheRepository
	preprocessor *QueryPreprocessor
	workers      int
	cacheTTL     time.Duration
}

// NewReconciliationService creates a reconciliation service. cache may be nil.
func NewReconciliationService(
	client domain.PricingClient,
	cache domain.CacheRepository,
	config ReconciliationConfig,
) *ReconciliationService {
	workers := config.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = defaultOfferTTL
	}
	return &ReconciliationService{
		client:       client,
		cache:        cache,
		preprocessor: NewQueryPreprocessor(config.BatchSize),
		workers:      workers,
		cacheTTL:     ttl,
	}
}

// Reconcile prices every group carrying a manufacturer part number.
// Failed batches are logged and skipped. On cancellation no further batch
// is submitted, results already merged stay in place and an error wrapping
// domain.ErrCanceled is returned.
func (s *ReconciliationService) Reconcile(
	ctx context.Context,
	groups []*domain.PartGroup,
	reg *domain.Registry,
	progress domain.ProgressReporter,
) error {
	if progress == nil {
		progress = nopProgress{}
	}
	logger := logging.FromContext(ctx)

	networked := reg.Networked()
	if len(networked) == 0 {
		logger.Info().Msg("no networked distributors, skipping price query")
		return nil
	}

	queries := s.preprocessor.BuildQueries(groups)
	if len(queries) == 0 {
		return nil
	}
	batches := s.preprocessor.Batch(queries)

	workers := s.workers
	if workers > len(networked) {
		workers = len(networked)
	}
	logger.Debug().Int("workers", workers).Int("batches", len(batches)).Msg("starting price query")

	selector := NewOfferSelector(reg)
	var mu sync.Mutex

	progress.Start(len(queries))
	defer progress.Finish()

	var eg errgroup.Group
	eg.SetLimit(workers)
	for _, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		batch := batch
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results := s.fetchBatch(ctx, batch)
			mu.Lock()
			s.mergeBatch(ctx, groups, batch, results, selector)
			mu.Unlock()
			progress.Advance(len(batch))
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		logger.Warn().Err(err).Msg("price query interrupted, keeping partial results")
		return fmt.Errorf("%w: %v", domain.ErrCanceled, err)
	}
	return nil
}

// fetchBatch returns the match items of every query in batch that was
// answered from the cache or the API, keyed by reference.
func (s *ReconciliationService) fetchBatch(ctx context.Context, batch []domain.PartQuery) map[int][]domain.MatchItem {
	logger := logging.FromContext(ctx)
	results := make(map[int][]domain.MatchItem, len(batch))

	var pending []domain.PartQuery
	for _, q := range batch {
		if items, ok := s.cachedItems(ctx, q.MPN); ok {
			results[q.Reference] = items
			continue
		}
		pending = append(pending, q)
	}
	if len(pending) == 0 {
		return results
	}

	matched, err := s.client.MatchParts(ctx, pending)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn().Err(err).Int("parts", len(pending)).Msg("price query batch failed")
		}
		return results
	}

	mpnByRef := make(map[int]string, len(pending))
	for _, q := range pending {
		mpnByRef[q.Reference] = q.MPN
	}
	for _, r := range matched {
		ref := int(r.Reference)
		mpn, ok := mpnByRef[ref]
		if !ok {
			logger.Debug().Int("reference", ref).Msg("ignoring result for unknown reference")
			continue
		}
		results[ref] = append(results[ref], r.Items...)
		s.storeItems(ctx, mpn, r.Items)
	}
	return results
}

func (s *ReconciliationService) mergeBatch(
	ctx context.Context,
	groups []*domain.PartGroup,
	batch []domain.PartQuery,
	results map[int][]domain.MatchItem,
	selector *OfferSelector,
) {
	for _, q := range batch {
		items, ok := results[q.Reference]
		if !ok || q.Reference < 0 || q.Reference >= len(groups) {
			continue
		}
		selector.MergeResult(ctx, groups[q.Reference], items)
	}
}

func (s *ReconciliationService) cachedItems(ctx context.Context, mpn string) ([]domain.MatchItem, bool) {
	if s.cache == nil {
		return nil, false
	}
	value, err := s.cache.Get(ctx, OfferCacheKey(mpn))
	if err != nil {
		return nil, false
	}
	items, ok := value.([]domain.MatchItem)
	return items, ok
}

func (s *ReconciliationService) storeItems(ctx context.Context, mpn string, items []domain.MatchItem) {
	if s.cache == nil {
		return
	}
	stored := append([]domain.MatchItem(nil), items...)
	if err := s.cache.Set(ctx, OfferCacheKey(mpn), stored, s.cacheTTL); err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("mpn", mpn).Msg("failed to cache offers")
	}
}
