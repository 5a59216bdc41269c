package usecase

import (
	"fmt"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
)

const defaultPartQty = "1"

// ProjectPrefix is the designator prefix of source i ("prj0")
func ProjectPrefix(i int) string {
	return fmt.Sprintf("prj%d", i)
}

// NamespaceReferences unions the part maps of all sources. With a single
// source the records are copied unchanged. With several, each designator
// becomes "prj<i>:<ref>" and each record carries a quantity vector with the
// source's manf#_qty (default "1") at position i and "0" elsewhere.
func NamespaceReferences(sources []domain.PartMap) domain.PartMap {
	out := make(domain.PartMap)
	if len(sources) == 1 {
		for ref, rec := range sources[0] {
			out[ref] = &domain.PartRecord{Fields: rec.Fields.Clone()}
		}
		return out
	}

	for i, parts := range sources {
		prefix := ProjectPrefix(i)
		for _, ref := range parts.References() {
			rec := parts[ref]
			fields := rec.Fields.Clone()

			qty := make(domain.QtyVector, len(sources))
			for j := range qty {
				qty[j] = "0"
			}
			qty[i] = defaultPartQty
			if v := strings.TrimSpace(fields[domain.FieldManfQty]); v != "" {
				qty[i] = v
			}
			delete(fields, domain.FieldManfQty)

			out[prefix+domain.Separator+ref] = &domain.PartRecord{Fields: fields, Qty: qty}
		}
	}
	return out
}
