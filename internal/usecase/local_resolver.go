package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/logging"
)

// pricingNoise matches everything a local pricing string may not contain
var pricingNoise = regexp.MustCompile(`[^0-9.;:]`)

// LocalResolver turns "<dist>:cat#", "<dist>:pricing" and "<dist>:link"
// fields into per-distributor offers.
type LocalResolver struct{}

// NewLocalResolver creates a local resolver
func NewLocalResolver() *LocalResolver {
	return &LocalResolver{}
}

// Resolve discovers local distributors, materializes the per-distributor
// defaults of every group, ingests local data and finalizes the registry.
func (r *LocalResolver) Resolve(ctx context.Context, groups []*domain.PartGroup, reg *domain.Registry) []string {
	added := r.Discover(groups, reg)
	if len(added) > 0 {
		logging.FromContext(ctx).Info().Strs("distributors", added).Msg("local distributors discovered")
	}

	ids := reg.IDs()
	for _, g := range groups {
		g.InitDistributors(ids)
	}

	r.Ingest(ctx, groups, reg)
	reg.Finalize()
	return added
}

// Discover registers every unknown prefix of a "<prefix>:<cat#|pricing|link>"
// field as a local distributor. It returns the new identifiers in order of discovery.
func (r *LocalResolver) Discover(groups []*domain.PartGroup, reg *domain.Registry) []string {
	var added []string
	for _, g := range groups {
		for _, name := range g.Fields.Keys() {
			dist, sub, ok := domain.SplitDistField(name)
			if !ok || !isLocalSubfield(sub) || reg.Has(dist) {
				continue
			}
			if reg.AddLocal(dist) {
				added = append(added, dist)
			}
		}
	}
	return added
}

// Ingest copies local catalog numbers, links and price tiers onto each group
// for every registered distributor the group carries local fields for.
func (r *LocalResolver) Ingest(ctx context.Context, groups []*domain.PartGroup, reg *domain.Registry) {
	logger := logging.FromContext(ctx)
	ids := reg.IDs()

	for _, g := range groups {
		snapshot := g.Fields.Clone()
		mpn, _ := g.MPN()

		for _, dist := range ids {
			if dist == domain.LocalTemplateID {
				continue
			}
			catNum, hasCat := snapshot[domain.DistField(dist, domain.SubfieldCatNum)]
			pricing, hasPricing := snapshot[domain.DistField(dist, domain.SubfieldPricing)]
			link, hasLink := snapshot[domain.DistField(dist, domain.SubfieldLink)]
			if !hasCat && !hasPricing && !hasLink {
				continue
			}

			catNum = strings.TrimSpace(catNum)
			if catNum == "" {
				catNum = mpn
			}
			if catNum == "" {
				catNum = SyntheticCatalogNumber(snapshot, dist)
			}
			g.Fields[domain.DistField(dist, domain.SubfieldCatNum)] = catNum
			ensureDistributor(g, dist)
			g.PartNum[dist] = catNum

			g.URL[dist] = NormalizeLink(link)
			if g.URL[dist] == "" {
				logger.Debug().Str("distributor", dist).Strs("refs", g.Refs).Msg("no local part URL found")
			}

			tiers, err := ParsePricing(pricing)
			if err != nil {
				logger.Debug().Err(err).Str("distributor", dist).Str("pricing", pricing).Msg("ignoring local pricing")
				tiers = domain.PriceTiers{}
			}
			g.PriceTiers[dist] = tiers
		}
	}
}

// SyntheticCatalogNumber derives a stable "#XXXXXXXX" tag from the sorted
// field pairs of a part and the distributor identifier (FNV-1a, 32 bits).
func SyntheticCatalogNumber(fields domain.Fields, dist string) string {
	h := fnv.New32a()
	for _, name := range fields.Keys() {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(fields[name]))
		h.Write([]byte{0})
	}
	h.Write([]byte("dist"))
	h.Write([]byte{0})
	h.Write([]byte(dist))
	return fmt.Sprintf("#%08X", h.Sum32())
}

// NormalizeLink defaults a missing scheme to http. Empty or unparseable
// links yield "".
func NormalizeLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		u, err = url.Parse("http://" + raw)
		if err != nil {
			return ""
		}
	}
	return u.String()
}

// ParsePricing parses "qty:price;qty:price". Characters other than digits,
// '.', ';' and ':' are dropped first; empty segments are skipped. Any bad
// segment rejects the whole string.
func ParsePricing(s string) (domain.PriceTiers, error) {
	tiers := domain.PriceTiers{}
	cleaned := pricingNoise.ReplaceAllString(s, "")
	for _, segment := range strings.Split(cleaned, ";") {
		if segment == "" {
			continue
		}
		parts := strings.Split(segment, domain.Separator)
		if len(parts) != 2 {
			return domain.PriceTiers{}, fmt.Errorf("%w: segment %q", domain.ErrMalformedPricing, segment)
		}
		qty, err := strconv.Atoi(parts[0])
		if err != nil || qty < 1 {
			return domain.PriceTiers{}, fmt.Errorf("%w: quantity %q", domain.ErrMalformedPricing, parts[0])
		}
		price, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return domain.PriceTiers{}, fmt.Errorf("%w: price %q", domain.ErrMalformedPricing, parts[1])
		}
		tiers[qty] = price
	}
	return tiers, nil
}

func isLocalSubfield(sub string) bool {
	for _, s := range domain.LocalSubfields {
		if s == sub {
			return true
		}
	}
	return false
}

// ensureDistributor adds default entries for dist when a group was not
// materialized against the current registry.
func ensureDistributor(g *domain.PartGroup, dist string) {
	if g.PartNum == nil {
		g.InitDistributors(nil)
	}
	if _, ok := g.PartNum[dist]; ok {
		return
	}
	g.PartNum[dist] = ""
	g.URL[dist] = ""
	g.QtyAvail[dist] = nil
	g.QtyIncrement[dist] = nil
	g.PriceTiers[dist] = domain.PriceTiers{}
	g.InfoDist[dist] = map[string]string{}
}
