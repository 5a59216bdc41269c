package domain

import "sort"

// LocalTemplateID is the reserved registry entry cloned for ad-hoc local distributors
const LocalTemplateID = "local_template"

// ScrapeKind tells how a distributor's offers are obtained
type ScrapeKind string

const (
	// ScrapeWeb distributors are priced through the remote pricing API
	ScrapeWeb ScrapeKind = "web"
	// ScrapeLocal distributors are priced only from BOM fields
	ScrapeLocal ScrapeKind = "local"
)

// Distributor describes one registry entry
type Distributor struct {
	ID     string     `json:"id" yaml:"id"`
	Label  string     `json:"label" yaml:"label"`
	Scrape ScrapeKind `json:"scrape" yaml:"scrape"`
}

// DefaultDistributors is the static distributor catalog
func DefaultDistributors() []Distributor {
	return []Distributor{
		{ID: "digikey", Label: "Digi-Key", Scrape: ScrapeWeb},
		{ID: "mouser", Label: "Mouser", Scrape: ScrapeWeb},
		{ID: "newark", Label: "Newark", Scrape: ScrapeWeb},
		{ID: "farnell", Label: "Farnell", Scrape: ScrapeWeb},
		{ID: "rs", Label: "RS Components", Scrape: ScrapeWeb},
		{ID: "tme", Label: "TME", Scrape: ScrapeWeb},
		{ID: "arrow", Label: "Arrow", Scrape: ScrapeWeb},
		{ID: LocalTemplateID, Label: "Local", Scrape: ScrapeLocal},
	}
}

// Registry is the per-run distributor table. It is built once per pipeline
// run and passed explicitly to every stage; it is not safe for concurrent
// mutation, and stages that run concurrently only read it.
type Registry struct {
	entries map[string]*Distributor
}

// NewRegistry builds a registry from a catalog
func NewRegistry(catalog []Distributor) *Registry {
	r := &Registry{entries: make(map[string]*Distributor, len(catalog))}
	for _, d := range catalog {
		d := d
		r.entries[d.ID] = &d
	}
	return r
}

// Filter keeps the distributors named in include (all when include is empty)
// and drops every one named in exclude. The local template survives so local
// distributors can still be created.
func (r *Registry) Filter(include, exclude []string) {
	if len(include) > 0 {
		keep := make(map[string]bool, len(include)+1)
		for _, id := range include {
			keep[id] = true
		}
		keep[LocalTemplateID] = true
		for id := range r.entries {
			if !keep[id] {
				delete(r.entries, id)
			}
		}
	}
	for _, id := range exclude {
		if id == LocalTemplateID {
			continue
		}
		delete(r.entries, id)
	}
}

// Clear removes every entry, template included
func (r *Registry) Clear() {
	r.entries = map[string]*Distributor{}
}

// Has reports whether id is registered
func (r *Registry) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// Get returns a copy of the entry for id
func (r *Registry) Get(id string) (Distributor, bool) {
	d, ok := r.entries[id]
	if !ok {
		return Distributor{}, false
	}
	return *d, true
}

// IDs returns every registered identifier in sorted order
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Networked returns the sorted identifiers priced through the remote API
func (r *Registry) Networked() []string {
	var ids []string
	for _, id := range r.IDs() {
		if r.entries[id].Scrape == ScrapeWeb {
			ids = append(ids, id)
		}
	}
	return ids
}

// AddLocal registers id as a clone of the local template labeled with id.
// It reports false when id already exists or no template is available.
func (r *Registry) AddLocal(id string) bool {
	if r.Has(id) {
		return false
	}
	tmpl, ok := r.entries[LocalTemplateID]
	if !ok {
		return false
	}
	d := *tmpl
	d.ID = id
	d.Label = id
	r.entries[id] = &d
	return true
}

// Remove deletes id from the registry
func (r *Registry) Remove(id string) {
	delete(r.entries, id)
}

// Finalize removes the local template; the registry is read-only afterwards
func (r *Registry) Finalize() {
	delete(r.entries, LocalTemplateID)
}

// Len returns the number of entries
func (r *Registry) Len() int {
	return len(r.entries)
}

// Distributors returns copies of all entries sorted by identifier
func (r *Registry) Distributors() []*Distributor {
	out := make([]*Distributor, 0, len(r.entries))
	for _, id := range r.IDs() {
		d := *r.entries[id]
		out = append(out, &d)
	}
	return out
}
