package bom

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
)

// refColumns are the header names accepted for the designator column
var refColumns = []string{"refs", "ref", "reference", "references", "designator", "designators"}

// CSVReader reads a BOM whose first row names the fields
type CSVReader struct {
	groupIgnore []string
}

// NewCSVReader creates a CSV reader
func NewCSVReader() *CSVReader {
	return &CSVReader{groupIgnore: []string{domain.FieldLibPart}}
}

// GroupIgnoreFields lists fields CSV exports fill per sheet
func (r *CSVReader) GroupIgnoreFields() []string {
	return append([]string(nil), r.groupIgnore...)
}

// ReadParts reads one record per designator. A cell listing several
// designators yields one record for each.
func (r *CSVReader) ReadParts(ctx context.Context, path string, ignoreFields []string, variant string) (domain.PartMap, domain.ProjectInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ProjectInfo{}, err
	}
	defer f.Close()

	parts, err := r.parse(ctx, f, ignoreFields, variant)
	if err != nil {
		return nil, domain.ProjectInfo{}, fmt.Errorf("%s: %w", path, err)
	}

	info := domain.ProjectInfo{Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	if st, err := f.Stat(); err == nil {
		info.Date = st.ModTime().Format("2006-01-02")
	}
	return parts, info, nil
}

func (r *CSVReader) parse(ctx context.Context, in io.Reader, ignoreFields []string, variant string) (domain.PartMap, error) {
	filter, err := newRecordFilter(ignoreFields, variant)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.PartMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	names := make([]string, len(header))
	refCol := -1
	for i, h := range header {
		names[i] = fieldName(strings.TrimPrefix(h, "\ufeff"))
		if refCol < 0 && isRefColumn(names[i]) {
			refCol = i
		}
	}
	if refCol < 0 {
		return nil, fmt.Errorf("%w: no designator column in header", domain.ErrInvalidRequest)
	}

	parts := make(domain.PartMap)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if refCol >= len(row) {
			continue
		}
		refs := splitRefs(row[refCol])
		if len(refs) == 0 {
			continue
		}

		fields := domain.Fields{}
		for i, value := range row {
			if i == refCol || i >= len(names) || names[i] == "" {
				continue
			}
			fields[names[i]] = strings.TrimSpace(value)
		}
		kept, ok := filter.apply(fields)
		if !ok {
			continue
		}
		for _, ref := range refs {
			parts[ref] = &domain.PartRecord{Fields: kept.Clone()}
		}
	}
	return parts, nil
}

func isRefColumn(name string) bool {
	for _, c := range refColumns {
		if c == name {
			return true
		}
	}
	return false
}
