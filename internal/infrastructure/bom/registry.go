// Package bom reads bill-of-materials files into part maps.
package bom

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Registry maps EDA tool names to readers
type Registry struct {
	readers map[string]domain.BOMReader
}

// NewRegistry returns a registry with the built-in csv and yaml readers
func NewRegistry() *Registry {
	r := &Registry{readers: make(map[string]domain.BOMReader)}
	csvReader := NewCSVReader()
	yamlReader := NewYAMLReader()
	r.Register("csv", csvReader)
	r.Register("yaml", yamlReader)
	r.Register("yml", yamlReader)
	return r
}

// Register adds or replaces the reader for tool
func (r *Registry) Register(tool string, reader domain.BOMReader) {
	r.readers[strings.ToLower(tool)] = reader
}

// ReaderFor returns the reader for tool
func (r *Registry) ReaderFor(tool string) (domain.BOMReader, error) {
	reader, ok := r.readers[strings.ToLower(strings.TrimSpace(tool))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", domain.ErrUnknownEDATool, tool, strings.Join(r.Tools(), ", "))
	}
	return reader, nil
}

// Tools returns the registered tool names in sorted order
func (r *Registry) Tools() []string {
	tools := make([]string, 0, len(r.readers))
	for t := range r.readers {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	return tools
}

// fieldName folds a column or key name to its canonical form
func fieldName(raw string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(raw))
}

// recordFilter drops ignored fields and records outside the selected variant
type recordFilter struct {
	ignore  map[string]bool
	variant *regexp.Regexp
}

func newRecordFilter(ignoreFields []string, variant string) (*recordFilter, error) {
	f := &recordFilter{ignore: make(map[string]bool, len(ignoreFields))}
	for _, name := range ignoreFields {
		f.ignore[fieldName(name)] = true
	}
	if variant = strings.TrimSpace(variant); variant != "" {
		re, err := regexp.Compile(variant)
		if err != nil {
			return nil, fmt.Errorf("%w: bad variant expression %q: %v", domain.ErrInvalidRequest, variant, err)
		}
		f.variant = re
	}
	return f, nil
}

// apply returns the kept fields, or false when the record is excluded by variant
func (f *recordFilter) apply(fields domain.Fields) (domain.Fields, bool) {
	if f.variant != nil {
		if v := strings.TrimSpace(fields[domain.FieldVariant]); v != "" && !f.variant.MatchString(v) {
			return nil, false
		}
	}
	out := make(domain.Fields, len(fields))
	for name, value := range fields {
		if f.ignore[name] {
			continue
		}
		out[name] = value
	}
	return out, true
}

// splitRefs splits "R1, R2 R3;R4" into designators
func splitRefs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
}
