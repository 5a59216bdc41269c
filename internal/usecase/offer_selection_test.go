package usecase

import (
	"context"
	"testing"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPricedGroup(reg *domain.Registry, fields domain.Fields) *domain.PartGroup {
	g := &domain.PartGroup{Fields: fields}
	g.InitDistributors(reg.IDs())
	return g
}

func finalRegistry() *domain.Registry {
	reg := domain.NewRegistry(domain.DefaultDistributors())
	reg.Finalize()
	return reg
}

func TestOfferSelector_CutTapePreferred(t *testing.T) {
	reel := offer("Digi-Key", "REEL-ND", 10000, `{"USD": [[1000, 0.02], [2000, 0.018]]}`)
	// increment 25
	bulk := offer("Digi-Key", "BULK-ND", 500, `{"USD": [[25, 0.06], [50, 0.05]]}`)
	// increment 5
	cut := offer("Digi-Key", "CT-ND", 300, `{"USD": [[5, 0.10], [10, 0.08]]}`)

	orders := map[string][]domain.Offer{
		"cut first":  {cut, bulk, reel},
		"cut last":   {reel, bulk, cut},
		"cut middle": {bulk, cut, reel},
	}

	for name, offers := range orders {
		t.Run(name, func(t *testing.T) {
			reg := finalRegistry()
			g := newPricedGroup(reg, domain.Fields{"manf#": "RC0603"})

			NewOfferSelector(reg).MergeResult(context.Background(), g, []domain.MatchItem{{MPN: "RC0603", Offers: offers}})

			assert.Equal(t, "CT-ND", g.PartNum["digikey"])
			assert.Equal(t, "https://example.com/CT-ND", g.URL["digikey"])
			require.NotNil(t, g.QtyAvail["digikey"])
			assert.Equal(t, 300, *g.QtyAvail["digikey"])
			require.NotNil(t, g.QtyIncrement["digikey"])
			assert.Equal(t, 5, *g.QtyIncrement["digikey"])
			assert.Equal(t, domain.PriceTiers{
				5: 0.10, 10: 0.08, 25: 0.06, 50: 0.05, 1000: 0.02, 2000: 0.018,
			}, g.PriceTiers["digikey"])
			assert.Equal(t, map[string]string{}, g.InfoDist["digikey"])
		})
	}
}

func TestOfferSelector_UndefinedIncrement(t *testing.T) {
	single := offer("Mouser", "SINGLE", 10, `{"USD": [[1, 0.50]]}`)
	tiered := offer("Mouser", "TIERED", 20, `{"USD": [[1, 0.45], [10, 0.40]]}`)

	t.Run("defined increment replaces undefined", func(t *testing.T) {
		reg := finalRegistry()
		g := newPricedGroup(reg, domain.Fields{})

		NewOfferSelector(reg).MergeResult(context.Background(), g, []domain.MatchItem{{Offers: []domain.Offer{single, tiered}}})

		assert.Equal(t, "TIERED", g.PartNum["mouser"])
		assert.Equal(t, 9, *g.QtyIncrement["mouser"])
		// later offer overwrites the shared quantity
		assert.Equal(t, 0.45, g.PriceTiers["mouser"][1])
	})

	t.Run("undefined increment never replaces", func(t *testing.T) {
		reg := finalRegistry()
		g := newPricedGroup(reg, domain.Fields{})

		NewOfferSelector(reg).MergeResult(context.Background(), g, []domain.MatchItem{{Offers: []domain.Offer{tiered, single}}})

		assert.Equal(t, "TIERED", g.PartNum["mouser"])
		assert.Equal(t, 0.50, g.PriceTiers["mouser"][1])
	})

	t.Run("first offer stored even when undefined", func(t *testing.T) {
		reg := finalRegistry()
		g := newPricedGroup(reg, domain.Fields{})

		NewOfferSelector(reg).MergeResult(context.Background(), g, []domain.MatchItem{{Offers: []domain.Offer{single}}})

		assert.Equal(t, "SINGLE", g.PartNum["mouser"])
		assert.Nil(t, g.QtyIncrement["mouser"])
	})
}

func TestOfferSelector_Filtering(t *testing.T) {
	reg := finalRegistry()
	reg.Remove("mouser")
	g := newPricedGroup(reg, domain.Fields{"farnell:cat#": "LOCAL-1"})
	g.PartNum["farnell"] = "LOCAL-1"

	offers := []domain.Offer{
		offer("Unknown Broker", "UB-1", 1, `{"USD": [[1, 1.0]]}`),
		offer("Mouser", "M-1", 1, `{"USD": [[1, 1.0]]}`),
		offer("Farnell", "F-1", 1, `{"USD": [[1, 1.0]]}`),
		offer("Arrow Electronics, Inc.", "A-1", 1, `not json`),
		offer("Arrow Electronics, Inc.", "A-2", 1, `{"USD": [[1, 0.9], [10, 0.8]]}`),
	}

	NewOfferSelector(reg).MergeResult(context.Background(), g, []domain.MatchItem{{Offers: offers}})

	assert.NotContains(t, g.PartNum, "mouser")
	assert.Equal(t, "LOCAL-1", g.PartNum["farnell"])
	assert.Equal(t, domain.PriceTiers{}, g.PriceTiers["farnell"])
	// malformed prices spoil only their own offer
	assert.Equal(t, "A-2", g.PartNum["arrow"])
	assert.Equal(t, domain.PriceTiers{1: 0.9, 10: 0.8}, g.PriceTiers["arrow"])
}

func TestReplaces(t *testing.T) {
	five, ten := 5, 10
	assert.True(t, replaces(&five, nil))
	assert.True(t, replaces(&five, &ten))
	assert.False(t, replaces(&ten, &five))
	assert.False(t, replaces(&five, &five))
	assert.False(t, replaces(nil, &five))
	assert.False(t, replaces(nil, nil))
}
