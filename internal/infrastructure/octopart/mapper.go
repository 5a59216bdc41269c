package octopart

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
)

// PreferredCurrency is used when an offer lists prices in several currencies
const PreferredCurrency = "USD"

// sellerNames translates Octopart seller names to distributor identifiers
var sellerNames = map[string]string{
	"Digi-Key":                "digikey",
	"Mouser":                  "mouser",
	"Newark":                  "newark",
	"Farnell":                 "farnell",
	"RS Components":           "rs",
	"TME":                     "tme",
	"Arrow Electronics, Inc.": "arrow",
}

// DistributorForSeller returns the distributor identifier for an Octopart seller name
func DistributorForSeller(name string) (string, bool) {
	id, ok := sellerNames[name]
	return id, ok
}

// SellerNames returns the known seller names in sorted order
func SellerNames() []string {
	names := make([]string, 0, len(sellerNames))
	for n := range sellerNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OfferPriceTiers decodes the price list of an offer. The preferred currency
// is used when present, otherwise the first currency in lexical order.
// An offer without prices yields empty tiers and no error.
func OfferPriceTiers(offer domain.Offer) (domain.PriceTiers, error) {
	tiers := domain.PriceTiers{}
	raw := strings.TrimSpace(string(offer.Prices))
	if raw == "" || raw == "null" {
		return tiers, nil
	}

	var byCurrency map[string][][]json.RawMessage
	if err := json.Unmarshal(offer.Prices, &byCurrency); err != nil {
		return domain.PriceTiers{}, fmt.Errorf("%w: %v", domain.ErrMalformedPricing, err)
	}
	if len(byCurrency) == 0 {
		return tiers, nil
	}

	currency := PreferredCurrency
	if _, ok := byCurrency[currency]; !ok {
		currencies := make([]string, 0, len(byCurrency))
		for c := range byCurrency {
			currencies = append(currencies, c)
		}
		sort.Strings(currencies)
		currency = currencies[0]
	}

	for _, pair := range byCurrency[currency] {
		if len(pair) != 2 {
			return domain.PriceTiers{}, fmt.Errorf("%w: price pair has %d elements", domain.ErrMalformedPricing, len(pair))
		}
		qty, err := parseQuantity(pair[0])
		if err != nil {
			return domain.PriceTiers{}, err
		}
		price, err := parsePrice(pair[1])
		if err != nil {
			return domain.PriceTiers{}, err
		}
		tiers[qty] = price
	}
	return tiers, nil
}

// parseQuantity accepts a JSON number or numeric string
func parseQuantity(raw json.RawMessage) (int, error) {
	s := unquote(raw)
	qty, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("%w: bad quantity %s", domain.ErrMalformedPricing, string(raw))
		}
		qty = int(f)
	}
	if qty < 1 {
		return 0, fmt.Errorf("%w: quantity %d below 1", domain.ErrMalformedPricing, qty)
	}
	return qty, nil
}

// parsePrice accepts a JSON number or numeric string
func parsePrice(raw json.RawMessage) (float64, error) {
	price, err := strconv.ParseFloat(unquote(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad price %s", domain.ErrMalformedPricing, string(raw))
	}
	return price, nil
}

func unquote(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}
