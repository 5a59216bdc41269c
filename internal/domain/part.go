package domain

import (
	"sort"
	"strings"
)

// Separator splits a distributor identifier from its subfield ("digikey:cat#")
// and a project prefix from a designator ("prj0:R1").
const Separator = ":"

// Reserved field names shared by every BOM source
const (
	FieldRefs      = "refs"
	FieldValue     = "value"
	FieldDesc      = "desc"
	FieldFootprint = "footprint"
	FieldManf      = "manf"
	FieldManfNum   = "manf#"
	FieldManfQty   = "manf#_qty"
	FieldVariant   = "var"
	FieldLibPart   = "libpart"
	FieldPricing   = "pricing"
)

// Distributor-scoped subfields ("<dist>:<subfield>")
const (
	SubfieldCatNum  = "cat#"
	SubfieldPricing = "pricing"
	SubfieldLink    = "link"
)

// LocalSubfields are the suffixes that mark a field as belonging to a local distributor
var LocalSubfields = []string{SubfieldCatNum, SubfieldPricing, SubfieldLink}

// SpreadsheetFields are always displayed on the cost sheet
var SpreadsheetFields = []string{FieldRefs, FieldValue, FieldDesc, FieldFootprint, FieldManf, FieldManfNum}

// Fields is the open field map of one part record. Reserved keys are the
// Field* constants; any other key is a caller-supplied extension.
type Fields map[string]string

// Clone returns an independent copy of the map
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MPN returns the trimmed manufacturer part number and whether one is present
func (f Fields) MPN() (string, bool) {
	mpn := strings.TrimSpace(f[FieldManfNum])
	return mpn, mpn != ""
}

// DistField builds a distributor-scoped field name
func DistField(dist, subfield string) string {
	return dist + Separator + subfield
}

// SplitDistField splits "<dist>:<subfield>"; ok is false for generic fields
func SplitDistField(name string) (dist, subfield string, ok bool) {
	idx := strings.Index(name, Separator)
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

// CatalogField is the per-distributor catalog number field used by BOMs ("digikey#")
func CatalogField(dist string) string {
	return dist + "#"
}

// QtyField is the per-distributor quantity field ("digikey#_qty")
func QtyField(dist string) string {
	return dist + "#_qty"
}

// QtyVector holds one quantity string per BOM source
type QtyVector []string

// PartRecord is one raw, normalized source record before grouping
type PartRecord struct {
	Fields Fields `json:"fields"`
	// Qty is set only when several BOM sources are combined
	Qty QtyVector `json:"qty,omitempty"`
}

// PartMap maps a designator to its record
type PartMap map[string]*PartRecord

// References returns the designators in sorted order
func (m PartMap) References() []string {
	refs := make([]string, 0, len(m))
	for r := range m {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return refs
}

// PriceTiers maps a break quantity to a unit price
type PriceTiers map[int]float64

// Quantities returns the break quantities in increasing order
func (p PriceTiers) Quantities() []int {
	qtys := make([]int, 0, len(p))
	for q := range p {
		qtys = append(qtys, q)
	}
	sort.Ints(qtys)
	return qtys
}

// Increment returns the difference between the two smallest break quantities.
// ok is false when fewer than two tiers exist.
func (p PriceTiers) Increment() (inc int, ok bool) {
	qtys := p.Quantities()
	if len(qtys) < 2 {
		return 0, false
	}
	return qtys[1] - qtys[0], true
}

// UnitPrice returns the price for buying qty units: the tier with the largest
// break not above qty, or the smallest tier when qty is below every break.
func (p PriceTiers) UnitPrice(qty int) (float64, bool) {
	qtys := p.Quantities()
	if len(qtys) == 0 {
		return 0, false
	}
	price := p[qtys[0]]
	for _, q := range qtys {
		if q > qty {
			break
		}
		price = p[q]
	}
	return price, true
}

// PartGroup is one consolidated part and its per-distributor offers.
// Every per-distributor map holds a key for each registry entry.
type PartGroup struct {
	Refs         []string                     `json:"refs"`
	Fields       Fields                       `json:"fields"`
	Qty          QtyVector                    `json:"qty,omitempty"`
	PartNum      map[string]string            `json:"part_num"`
	URL          map[string]string            `json:"url"`
	QtyAvail     map[string]*int              `json:"qty_avail"`
	QtyIncrement map[string]*int              `json:"qty_increment"`
	PriceTiers   map[string]PriceTiers        `json:"price_tiers"`
	InfoDist     map[string]map[string]string `json:"info_dist"`
}

// NewPartGroup creates an empty group
func NewPartGroup() *PartGroup {
	return &PartGroup{Fields: Fields{}}
}

// MPN returns the group's manufacturer part number
func (g *PartGroup) MPN() (string, bool) {
	return g.Fields.MPN()
}

// InitDistributors resets every per-distributor map to its default value
// for each distributor in ids.
func (g *PartGroup) InitDistributors(ids []string) {
	g.PartNum = make(map[string]string, len(ids))
	g.URL = make(map[string]string, len(ids))
	g.QtyAvail = make(map[string]*int, len(ids))
	g.QtyIncrement = make(map[string]*int, len(ids))
	g.PriceTiers = make(map[string]PriceTiers, len(ids))
	g.InfoDist = make(map[string]map[string]string, len(ids))
	for _, id := range ids {
		g.PartNum[id] = ""
		g.URL[id] = ""
		g.QtyAvail[id] = nil
		g.QtyIncrement[id] = nil
		g.PriceTiers[id] = PriceTiers{}
		g.InfoDist[id] = map[string]string{}
	}
}

// ProjectInfo is the pass-through metadata of one BOM source
type ProjectInfo struct {
	Title   string `json:"title" yaml:"title"`
	Company string `json:"company" yaml:"company"`
	Date    string `json:"date" yaml:"date"`
}

// Catalog is the finalized output of a consolidation run
type Catalog struct {
	RunID        string         `json:"run_id"`
	Groups       []*PartGroup   `json:"groups"`
	Projects     []ProjectInfo  `json:"projects"`
	Distributors []*Distributor `json:"distributors"`
}
