package usecase

import (
	"context"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/logging"
)

// PruneDistributors drops networked distributors that have no match key.
// When no group carries a manufacturer part number, a networked distributor
// survives only if some group carries its own catalog field ("<dist>#").
// It returns the removed identifiers in sorted order.
func PruneDistributors(ctx context.Context, groups []*domain.PartGroup, reg *domain.Registry) []string {
	present := make(map[string]bool)
	for _, g := range groups {
		for name, v := range g.Fields {
			if v != "" {
				present[name] = true
			}
		}
		if _, ok := g.MPN(); ok {
			return nil
		}
	}

	logger := logging.FromContext(ctx)
	var pruned []string
	for _, id := range reg.Networked() {
		if present[domain.CatalogField(id)] {
			continue
		}
		d, _ := reg.Get(id)
		logger.Warn().
			Str("distributor", id).
			Msgf("no 'manf#' and '%s' field in any part: distributor '%s' will not be scraped", domain.CatalogField(id), d.Label)
		reg.Remove(id)
		pruned = append(pruned, id)
	}
	return pruned
}
