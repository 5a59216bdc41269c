package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/infrastructure/bom"
	"github.com/anderwm/KiCost/internal/infrastructure/cache"
	"github.com/anderwm/KiCost/internal/infrastructure/octopart"
	"github.com/anderwm/KiCost/internal/infrastructure/spreadsheet"
	"github.com/anderwm/KiCost/internal/usecase"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type costFlags struct {
	inputs       []string
	edaTools     []string
	variants     []string
	include      []string
	exclude      []string
	fields       []string
	ignoreFields []string
	groupFields  []string
	output       string
	noPrice      bool
	noCollapse   bool
}

func newCostCommand(a *app) *cobra.Command {
	var f costFlags

	cmd := &cobra.Command{
		Use:   "cost [bom files...]",
		Short: "Group, price and write a cost sheet for BOM files",
		Example: `  kicost cost -i board.csv
  kicost cost -i main.csv -i power.yaml --include digikey,mouser
  kicost cost board.csv --no-price --fields tolerance`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCost(cmd, append(append([]string(nil), f.inputs...), args...), f)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&f.inputs, "input", "i", nil, "BOM files to cost")
	flags.StringSliceVar(&f.edaTools, "eda-tool", nil, "EDA tool per input (csv, yaml); default from the file extension")
	flags.StringSliceVar(&f.variants, "variant", nil, "variant regular expression per input")
	flags.StringSliceVar(&f.include, "include", nil, "only price these distributors")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "never price these distributors")
	flags.BoolVar(&f.noPrice, "no-price", false, "skip every distributor and write an unpriced sheet")
	flags.StringSliceVar(&f.fields, "fields", nil, "extra fields to show on the sheet")
	flags.StringSliceVar(&f.ignoreFields, "ignore-fields", nil, "fields dropped while reading the BOMs")
	flags.StringSliceVar(&f.groupFields, "group-fields", nil, "fields that never split otherwise identical parts")
	flags.BoolVar(&f.noCollapse, "no-collapse", false, "list every designator instead of ranges")
	flags.StringVarP(&f.output, "output", "o", "", "cost sheet path; derived from the inputs when empty")

	flags.Int("workers", 0, "concurrent price queries")
	flags.Int("retries", 0, "attempts per price query")
	flags.Duration("throttle", 0, "minimum delay between price queries")
	mustBind(a.v, "scrape.workers", flags.Lookup("workers"))
	mustBind(a.v, "scrape.retries", flags.Lookup("retries"))
	mustBind(a.v, "scrape.throttle_delay", flags.Lookup("throttle"))

	return cmd
}

func (a *app) runCost(cmd *cobra.Command, files []string, f costFlags) error {
	if len(files) == 0 {
		return domain.ErrNoInputFiles
	}
	cfg := a.cfg

	client := octopart.NewClient(cfg.Octopart.APIKey, cfg.Octopart.BaseURL,
		octopart.WithTimeout(cfg.Octopart.Timeout),
		octopart.WithRetries(cfg.Scrape.Retries),
		octopart.WithThrottle(cfg.Scrape.ThrottleDelay),
	)
	reconciler := usecase.NewReconciliationService(client,
		cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval),
		usecase.ReconciliationConfig{
			BatchSize: cfg.Scrape.BatchSize,
			Workers:   cfg.Scrape.Workers,
			CacheTTL:  cfg.Cache.TTL,
		},
	)
	costing := usecase.NewCostingService(
		bom.NewRegistry(),
		reconciler,
		spreadsheet.NewCSVWriter(),
		usecase.NewLogProgress(&a.logger),
		usecase.CostingServiceConfig{},
	)

	res, err := costing.Run(cmd.Context(), usecase.CostRequest{
		Files:        files,
		Tools:        f.edaTools,
		Variants:     f.variants,
		IgnoreFields: f.ignoreFields,
		OutFile:      f.output,
		CollapseRefs: !f.noCollapse,
		ConsolidationRequest: usecase.ConsolidationRequest{
			Include:     f.include,
			Exclude:     f.exclude,
			NoPrice:     f.noPrice,
			UserFields:  f.fields,
			GroupFields: f.groupFields,
		},
	})
	if res == nil {
		return err
	}
	if errors.Is(err, domain.ErrCanceled) {
		a.logger.Warn().Str("file", res.OutFile).Msg("run interrupted, cost sheet holds partial prices")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cost sheet: %s\n", res.OutFile)
	if rerr := renderSummary(out, res.Catalog); rerr != nil {
		return rerr
	}
	return err
}

// renderSummary prints the parts priced and the board total per distributor
func renderSummary(w io.Writer, catalog *domain.Catalog) error {
	table := tablewriter.NewTable(w)
	table.Header("Distributor", "Priced", "Missing", "Total")

	for _, d := range catalog.Distributors {
		priced, missing := 0, 0
		total := decimal.Zero
		for _, g := range catalog.Groups {
			_, qty := spreadsheet.BuildQuantity(g)
			price, ok := g.PriceTiers[d.ID].UnitPrice(int(qty))
			if !ok {
				missing++
				continue
			}
			priced++
			total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty)))
		}
		if err := table.Append(d.Label, priced, missing, total.StringFixed(2)); err != nil {
			return err
		}
	}
	return table.Render()
}
