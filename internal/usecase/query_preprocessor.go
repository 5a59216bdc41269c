package usecase

import (
	"regexp"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
)

// offerCachePrefix namespaces offer entries in the shared cache
const offerCachePrefix = "offers:"

var mpnSpaces = regexp.MustCompile(`\s+`)

// QueryPreprocessor turns Part Groups into remote match queries
type QueryPreprocessor struct {
	batchSize int
}

// NewQueryPreprocessor creates a preprocessor flushing every batchSize queries
func NewQueryPreprocessor(batchSize int) *QueryPreprocessor {
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	return &QueryPreprocessor{batchSize: batchSize}
}

// BuildQueries enumerates the groups carrying a manufacturer part number.
// Reference is the group's index in groups.
func (p *QueryPreprocessor) BuildQueries(groups []*domain.PartGroup) []domain.PartQuery {
	var queries []domain.PartQuery
	for i, g := range groups {
		mpn, ok := g.MPN()
		if !ok {
			continue
		}
		queries = append(queries, domain.PartQuery{Reference: i, MPN: mpn})
	}
	return queries
}

// Batch splits queries into consecutive batches of at most batchSize; the
// last batch holds the remainder.
func (p *QueryPreprocessor) Batch(queries []domain.PartQuery) [][]domain.PartQuery {
	var batches [][]domain.PartQuery
	for start := 0; start < len(queries); start += p.batchSize {
		end := start + p.batchSize
		if end > len(queries) {
			end = len(queries)
		}
		batches = append(batches, queries[start:end])
	}
	return batches
}

// NormalizeMPN folds case and whitespace so equivalent part numbers share a cache entry
func NormalizeMPN(mpn string) string {
	mpn = mpnSpaces.ReplaceAllString(strings.TrimSpace(mpn), " ")
	return strings.ToUpper(mpn)
}

// OfferCacheKey is the cache key of the match items for mpn
func OfferCacheKey(mpn string) string {
	return offerCachePrefix + NormalizeMPN(mpn)
}
