// Package spreadsheet renders a priced catalog as a cost sheet.
package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/shopspring/decimal"
)

// CSVWriter writes cost sheets as comma-separated files
type CSVWriter struct{}

// NewCSVWriter creates a CSV cost sheet writer
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// Extension returns the file extension of the produced sheets
func (w *CSVWriter) Extension() string {
	return ".csv"
}

// CreateSpreadsheet writes catalog to opts.OutFile
func (w *CSVWriter) CreateSpreadsheet(catalog *domain.Catalog, opts domain.SpreadsheetOptions) (err error) {
	if opts.OutFile == "" {
		return fmt.Errorf("%w: no output file", domain.ErrInvalidRequest)
	}
	f, err := os.Create(opts.OutFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return w.Write(f, catalog, opts)
}

// Write renders catalog to out. The sheet starts with the project header,
// followed by one row per part group and a totals row per distributor.
func (w *CSVWriter) Write(out io.Writer, catalog *domain.Catalog, opts domain.SpreadsheetOptions) error {
	if catalog == nil {
		return fmt.Errorf("%w: nil catalog", domain.ErrInvalidRequest)
	}
	cw := csv.NewWriter(out)

	layout := newSheetLayout(catalog, opts)
	for _, row := range layout.preamble(catalog, opts) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	if err := cw.Write(layout.header()); err != nil {
		return err
	}

	totals := make([]decimal.Decimal, len(catalog.Distributors))
	for _, g := range catalog.Groups {
		if err := cw.Write(layout.row(g, totals)); err != nil {
			return err
		}
	}
	if err := cw.Write(layout.totals(totals)); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// distColumns are written for every distributor in registry order
var distColumns = []string{"Avail", "Cat#", "Unit Price", "Ext Price", "Link"}

type sheetLayout struct {
	distributors []*domain.Distributor
	userFields   []string
	projects     int
	collapse     bool
}

func newSheetLayout(catalog *domain.Catalog, opts domain.SpreadsheetOptions) *sheetLayout {
	userFields := make([]string, 0, len(opts.UserFields))
	for _, f := range opts.UserFields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			userFields = append(userFields, f)
		}
	}
	return &sheetLayout{
		distributors: catalog.Distributors,
		userFields:   userFields,
		projects:     len(catalog.Projects),
		collapse:     opts.CollapseRefs,
	}
}

func (l *sheetLayout) preamble(catalog *domain.Catalog, opts domain.SpreadsheetOptions) [][]string {
	var rows [][]string
	for i, p := range catalog.Projects {
		label := "Project"
		if l.projects > 1 {
			label = fmt.Sprintf("Project prj%d", i)
		}
		rows = append(rows,
			[]string{label, p.Title},
			[]string{"Company", p.Company},
			[]string{"Date", p.Date},
		)
	}
	if opts.VariantLabel != "" {
		rows = append(rows, []string{"Variant", opts.VariantLabel})
	}
	if catalog.RunID != "" {
		rows = append(rows, []string{"Run", catalog.RunID})
	}
	return append(rows, []string{})
}

func (l *sheetLayout) header() []string {
	row := []string{"Refs", "Value", "Desc", "Footprint", "Manf", "Manf#"}
	row = append(row, l.userFields...)
	if l.projects > 1 {
		for i := 0; i < l.projects; i++ {
			row = append(row, fmt.Sprintf("Qty prj%d", i))
		}
	}
	row = append(row, "Build Qty")
	for _, d := range l.distributors {
		for _, c := range distColumns {
			row = append(row, d.Label+" "+c)
		}
	}
	return row
}

func (l *sheetLayout) row(g *domain.PartGroup, totals []decimal.Decimal) []string {
	refs := strings.Join(g.Refs, ",")
	if l.collapse {
		refs = CollapseRefs(g.Refs)
	}
	row := []string{
		refs,
		g.Fields[domain.FieldValue],
		g.Fields[domain.FieldDesc],
		g.Fields[domain.FieldFootprint],
		g.Fields[domain.FieldManf],
		g.Fields[domain.FieldManfNum],
	}
	for _, f := range l.userFields {
		row = append(row, g.Fields[f])
	}

	perProject, qty := BuildQuantity(g)
	if l.projects > 1 {
		for i := 0; i < l.projects; i++ {
			n := int64(0)
			if i < len(perProject) {
				n = perProject[i]
			}
			row = append(row, fmt.Sprint(n))
		}
	}
	row = append(row, fmt.Sprint(qty))

	for i, d := range l.distributors {
		avail := ""
		if n := g.QtyAvail[d.ID]; n != nil {
			avail = fmt.Sprint(*n)
		}
		unit, ext := "", ""
		if price, ok := g.PriceTiers[d.ID].UnitPrice(int(qty)); ok && qty > 0 {
			u := decimal.NewFromFloat(price)
			e := u.Mul(decimal.NewFromInt(qty))
			totals[i] = totals[i].Add(e)
			unit = u.String()
			ext = e.StringFixed(2)
		}
		row = append(row, avail, g.PartNum[d.ID], unit, ext, g.URL[d.ID])
	}
	return row
}

func (l *sheetLayout) totals(totals []decimal.Decimal) []string {
	row := make([]string, len(l.header())-len(l.distributors)*len(distColumns))
	row[0] = "Total"
	for _, t := range totals {
		row = append(row, "", "", "", t.StringFixed(2), "")
	}
	return row
}

// BuildQuantity returns the number of units to buy for a group. Groups from
// several projects sum their quantity vector, rounded up per project; single
// projects multiply the designator count by manf#_qty (default 1).
func BuildQuantity(g *domain.PartGroup) (perProject []int64, total int64) {
	if len(g.Qty) > 0 {
		perProject = make([]int64, len(g.Qty))
		for i, v := range g.Qty {
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				continue
			}
			perProject[i] = d.Ceil().IntPart()
			total += perProject[i]
		}
		return perProject, total
	}

	mult := decimal.NewFromInt(1)
	if v := strings.TrimSpace(g.Fields[domain.FieldManfQty]); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			mult = d
		}
	}
	total = mult.Mul(decimal.NewFromInt(int64(len(g.Refs)))).Ceil().IntPart()
	return []int64{total}, total
}
