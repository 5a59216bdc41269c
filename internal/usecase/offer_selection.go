package usecase

import (
	"context"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/infrastructure/octopart"
	"github.com/anderwm/KiCost/internal/logging"
)

// OfferSelector merges the offers of one match result into a Part Group.
//
// Price tiers of every offer from a distributor are unioned, later offers
// replacing earlier ones at equal quantities. The SKU, URL, stock and
// increment come from the first offer and are replaced by a later one only
// when its increment is strictly smaller. An undefined increment (fewer than
// two tiers) ranks as infinite: it never replaces, and any defined
// increment replaces it.
type OfferSelector struct {
	reg *domain.Registry
}

// NewOfferSelector creates a selector limited to the distributors in reg
func NewOfferSelector(reg *domain.Registry) *OfferSelector {
	return &OfferSelector{reg: reg}
}

// MergeResult applies every recognized offer in items to group
func (s *OfferSelector) MergeResult(ctx context.Context, group *domain.PartGroup, items []domain.MatchItem) {
	logger := logging.FromContext(ctx)
	selected := make(map[string]bool)

	for _, item := range items {
		for _, offer := range item.Offers {
			dist, ok := octopart.DistributorForSeller(offer.Seller.Name)
			if !ok || !s.reg.Has(dist) {
				continue
			}
			if _, local := group.Fields[domain.DistField(dist, domain.SubfieldCatNum)]; local {
				continue
			}
			ensureDistributor(group, dist)

			tiers, err := octopart.OfferPriceTiers(offer)
			if err != nil {
				logger.Debug().Err(err).Str("distributor", dist).Str("sku", offer.SKU).Msg("ignoring offer prices")
				tiers = domain.PriceTiers{}
			}
			merged := group.PriceTiers[dist]
			if merged == nil {
				merged = domain.PriceTiers{}
			}
			for qty, price := range tiers {
				merged[qty] = price
			}
			group.PriceTiers[dist] = merged

			var inc *int
			if v, ok := tiers.Increment(); ok {
				inc = &v
			}

			if !selected[dist] {
				selected[dist] = true
				applyOffer(group, dist, offer, inc)
			} else if replaces(inc, group.QtyIncrement[dist]) {
				applyOffer(group, dist, offer, inc)
			}

			group.InfoDist[dist] = map[string]string{}
		}
	}
}

// replaces reports whether candidate beats the stored increment
func replaces(candidate, stored *int) bool {
	if candidate == nil {
		return false
	}
	return stored == nil || *candidate < *stored
}

func applyOffer(group *domain.PartGroup, dist string, offer domain.Offer, inc *int) {
	group.PartNum[dist] = offer.SKU
	group.URL[dist] = offer.ProductURL
	if offer.InStockQuantity != nil {
		qty := *offer.InStockQuantity
		group.QtyAvail[dist] = &qty
	} else {
		group.QtyAvail[dist] = nil
	}
	group.QtyIncrement[dist] = inc
}
