package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/logging"
)

// identitySep joins the name/value pairs of an identity key. Field names and
// values come from text files and never contain NUL.
const identitySep = "\x00"

// alwaysIgnoredFields never distinguish two parts
var alwaysIgnoredFields = []string{domain.FieldDesc, domain.FieldVariant}

// GroupingService merges source records with equal identity fields into Part Groups
type GroupingService struct {
	ignore map[string]bool
}

// NewGroupingService creates a grouping service. desc and var are always
// ignored in addition to ignoreFields.
func NewGroupingService(ignoreFields []string) *GroupingService {
	ignore := toSet(ignoreFields)
	for _, f := range alwaysIgnoredFields {
		ignore[f] = true
	}
	return &GroupingService{ignore: ignore}
}

// IgnoredFields returns the sorted ignore set
func (s *GroupingService) IgnoredFields() []string {
	return sortedKeys(s.ignore)
}

// isIdentityField reports whether name takes part in the identity key
func (s *GroupingService) isIdentityField(name string) bool {
	if s.ignore[name] {
		return false
	}
	if name == domain.FieldRefs || name == domain.FieldManfQty {
		return false
	}
	if strings.HasSuffix(name, "#_qty") {
		return false
	}
	if strings.Contains(name, domain.Separator) {
		return false
	}
	return true
}

// IdentityKey is the canonical partition key of a record: its sorted
// identity field pairs. Empty values count as absent.
func (s *GroupingService) IdentityKey(fields domain.Fields) string {
	var b strings.Builder
	for _, name := range fields.Keys() {
		v := fields[name]
		if v == "" || !s.isIdentityField(name) {
			continue
		}
		b.WriteString(name)
		b.WriteString(identitySep)
		b.WriteString(v)
		b.WriteString(identitySep)
	}
	return b.String()
}

// Group partitions parts by identity. Groups are returned in order of their
// first designator; references within a group are sorted.
func (s *GroupingService) Group(ctx context.Context, parts domain.PartMap) []*domain.PartGroup {
	logger := logging.FromContext(ctx)

	index := make(map[string]*domain.PartGroup)
	var groups []*domain.PartGroup

	for _, ref := range parts.References() {
		rec := parts[ref]
		key := s.IdentityKey(rec.Fields)

		group, ok := index[key]
		if !ok {
			group = domain.NewPartGroup()
			index[key] = group
			groups = append(groups, group)
		}
		group.Refs = append(group.Refs, ref)

		for _, name := range rec.Fields.Keys() {
			v := rec.Fields[name]
			if v == "" {
				continue
			}
			existing, seen := group.Fields[name]
			if !seen || existing == "" {
				group.Fields[name] = v
				continue
			}
			if existing != v && s.isIdentityField(name) {
				logger.Warn().
					Str("field", name).
					Str("kept", existing).
					Str("dropped", v).
					Str("ref", ref).
					Msg("conflicting identity field inside one group")
			}
		}

		group.Qty = sumQty(group.Qty, rec.Qty)
	}

	for _, g := range groups {
		sort.Strings(g.Refs)
	}
	return groups
}

// sumQty adds two quantity vectors element-wise. Non-numeric entries keep
// the first non-zero value seen.
func sumQty(acc, add domain.QtyVector) domain.QtyVector {
	if len(add) == 0 {
		return acc
	}
	if acc == nil {
		return append(domain.QtyVector(nil), add...)
	}
	for len(acc) < len(add) {
		acc = append(acc, "0")
	}
	for i, v := range add {
		a, errA := strconv.ParseFloat(acc[i], 64)
		b, errB := strconv.ParseFloat(v, 64)
		switch {
		case errA == nil && errB == nil:
			acc[i] = strconv.FormatFloat(a+b, 'f', -1, 64)
		case acc[i] == "" || acc[i] == "0":
			acc[i] = v
		}
	}
	return acc
}
