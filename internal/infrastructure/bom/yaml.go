package bom

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/goccy/go-yaml"
)

// yamlBOM is the on-disk layout of a YAML BOM
type yamlBOM struct {
	Project domain.ProjectInfo                `yaml:"project"`
	Parts   map[string]map[string]interface{} `yaml:"parts"`
}

// YAMLReader reads BOMs of the form
//
//	project: {title: amp, company: acme, date: 2024-01-01}
//	parts:
//	  R1,R2: {value: 10k, manf#: RC0603FR-0710KL}
type YAMLReader struct{}

// NewYAMLReader creates a YAML reader
func NewYAMLReader() *YAMLReader {
	return &YAMLReader{}
}

// GroupIgnoreFields returns nil; YAML BOMs are written by hand
func (r *YAMLReader) GroupIgnoreFields() []string {
	return nil
}

// ReadParts reads the project block and one record per designator
func (r *YAMLReader) ReadParts(ctx context.Context, path string, ignoreFields []string, variant string) (domain.PartMap, domain.ProjectInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ProjectInfo{}, err
	}
	parts, info, err := r.parse(data, ignoreFields, variant)
	if err != nil {
		return nil, domain.ProjectInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	return parts, info, nil
}

func (r *YAMLReader) parse(data []byte, ignoreFields []string, variant string) (domain.PartMap, domain.ProjectInfo, error) {
	filter, err := newRecordFilter(ignoreFields, variant)
	if err != nil {
		return nil, domain.ProjectInfo{}, err
	}

	var doc yamlBOM
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.ProjectInfo{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	parts := make(domain.PartMap)
	for key, raw := range doc.Parts {
		fields := make(domain.Fields, len(raw))
		for name, value := range raw {
			n := fieldName(name)
			if n == "" || value == nil {
				continue
			}
			fields[n] = strings.TrimSpace(fmt.Sprint(value))
		}
		kept, ok := filter.apply(fields)
		if !ok {
			continue
		}
		for _, ref := range splitRefs(key) {
			parts[ref] = &domain.PartRecord{Fields: kept.Clone()}
		}
	}
	return parts, doc.Project, nil
}
