package usecase

import (
	"sort"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fieldCaser folds field names; Caser values are stateful, so each call builds its own
func fieldCaser() cases.Caser {
	return cases.Lower(language.Und)
}

// CanonicalFieldName folds case and trims surrounding whitespace
func CanonicalFieldName(name string) string {
	return fieldCaser().String(strings.TrimSpace(name))
}

// NormalizeFields returns a copy of fields with canonical names. When two raw
// names fold to the same key, the first non-empty value in name order wins.
func NormalizeFields(fields domain.Fields) domain.Fields {
	out := make(domain.Fields, len(fields))
	caser := fieldCaser()
	for _, name := range fields.Keys() {
		key := caser.String(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if existing, ok := out[key]; ok && existing != "" {
			continue
		}
		out[key] = fields[name]
	}
	return out
}

// NormalizePartMap canonicalizes the field names of every record in parts
func NormalizePartMap(parts domain.PartMap) domain.PartMap {
	out := make(domain.PartMap, len(parts))
	for ref, rec := range parts {
		if rec == nil {
			continue
		}
		out[ref] = &domain.PartRecord{
			Fields: NormalizeFields(rec.Fields),
			Qty:    append(domain.QtyVector(nil), rec.Qty...),
		}
	}
	return out
}

// FieldNormalizer finds the extra fields of source records that must be kept
// on a group but never split otherwise identical parts.
type FieldNormalizer struct {
	reserved map[string]bool
}

// NewFieldNormalizer builds the reserved set from the display fields, the
// manufacturer and per-distributor catalog and quantity fields, pricing,
// and the caller's user fields.
func NewFieldNormalizer(distributorIDs, userFields []string) *FieldNormalizer {
	reserved := make(map[string]bool)
	for _, f := range domain.SpreadsheetFields {
		reserved[f] = true
	}
	reserved[domain.FieldManfNum] = true
	reserved[domain.FieldManfQty] = true
	reserved[domain.FieldPricing] = true
	for _, id := range distributorIDs {
		reserved[domain.CatalogField(id)] = true
		reserved[domain.QtyField(id)] = true
	}
	for _, f := range userFields {
		reserved[CanonicalFieldName(f)] = true
	}
	return &FieldNormalizer{reserved: reserved}
}

// ExtraFields returns the sorted names in fields that are neither reserved,
// already in groupIgnore, nor distributor-scoped.
func (n *FieldNormalizer) ExtraFields(fields domain.Fields, groupIgnore []string) []string {
	ignored := toSet(groupIgnore)
	var extras []string
	for _, name := range fields.Keys() {
		if n.reserved[name] || ignored[name] || strings.Contains(name, domain.Separator) {
			continue
		}
		extras = append(extras, name)
	}
	return extras
}

// AugmentIgnore folds the extra fields of every record into groupIgnore and
// returns the sorted, de-duplicated result.
func (n *FieldNormalizer) AugmentIgnore(parts domain.PartMap, groupIgnore []string) []string {
	set := toSet(groupIgnore)
	for _, ref := range parts.References() {
		for _, extra := range n.ExtraFields(parts[ref].Fields, nil) {
			set[extra] = true
		}
	}
	return sortedKeys(set)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
