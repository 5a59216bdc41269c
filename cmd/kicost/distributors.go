package main

import (
	"io"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/infrastructure/octopart"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newDistributorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "distributors",
		Short: "List the distributors that can be priced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderDistributors(cmd.OutOrStdout())
		},
	}
}

func renderDistributors(w io.Writer) error {
	sellers := make(map[string][]string)
	for _, name := range octopart.SellerNames() {
		if id, ok := octopart.DistributorForSeller(name); ok {
			sellers[id] = append(sellers[id], name)
		}
	}

	table := tablewriter.NewTable(w)
	table.Header("ID", "Label", "Source", "Sellers")
	for _, d := range domain.DefaultDistributors() {
		if d.ID == domain.LocalTemplateID {
			continue
		}
		if err := table.Append(d.ID, d.Label, string(d.Scrape), strings.Join(sellers[d.ID], ", ")); err != nil {
			return err
		}
	}
	return table.Render()
}
