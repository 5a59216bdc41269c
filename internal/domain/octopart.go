package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PartQuery asks the pricing API to match one manufacturer part number.
// Reference is the group index and is the only request/response correlation key.
type PartQuery struct {
	Reference int    `json:"reference"`
	MPN       string `json:"mpn"`
}

// QueryRef is a query reference echoed back by the API, which may encode it
// as a number or a string.
type QueryRef int

// UnmarshalJSON accepts 3 as well as "3"
func (r *QueryRef) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid query reference %s: %w", string(data), err)
	}
	*r = QueryRef(n)
	return nil
}

// MatchResponse is the body returned by the part-match endpoint
type MatchResponse struct {
	Results []MatchResult `json:"results"`
}

// MatchResult holds the items matched for one query
type MatchResult struct {
	Reference QueryRef    `json:"reference"`
	Items     []MatchItem `json:"items"`
}

// MatchItem is one catalog part matched by the API
type MatchItem struct {
	MPN    string  `json:"mpn"`
	Offers []Offer `json:"offers"`
}

// Offer is one seller's listing for a matched item
type Offer struct {
	Seller          Seller `json:"seller"`
	SKU             string `json:"sku"`
	ProductURL      string `json:"product_url"`
	InStockQuantity *int   `json:"in_stock_quantity"`
	// Prices maps a currency code to a list of [quantity, price] pairs. It is
	// kept raw so that a malformed price list spoils only its own offer.
	Prices json.RawMessage `json:"prices"`
}

// Seller identifies the distributor making an offer
type Seller struct {
	Name string `json:"name"`
}
