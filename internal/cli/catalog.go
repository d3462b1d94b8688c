package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	service "github.com/okian/appraiser/internal/app"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the price list.",
	}
	cmd.AddCommand(newCatalogLookupCmd())
	return cmd
}

func newCatalogLookupCmd() *cobra.Command {
	var suggestions int

	cmd := &cobra.Command{
		Use:   "lookup <name...>",
		Short: "Resolve an item label the way scraped names are resolved.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := getEnv(cmd.Context())
			label := strings.Join(args, " ")
			resolver := service.ResolverFromConfig(cmd.Context(), e.cfg)

			if m, ok := resolver.Resolve(cmd.Context(), label); ok {
				t := newTable(e.out)
				t.AppendHeader(table.Row{"Name", "Match", "Category", "Type", "USD", "Coins", "Shards"})
				t.AppendRow(table.Row{
					m.Entry.Name, m.Kind, m.Entry.Category, m.Entry.ItemType,
					m.Entry.PriceUSD, m.Entry.PriceCoins, m.Entry.PriceShards,
				})
				t.Render()
				return nil
			}

			near := resolver.Suggest(label, suggestions)
			if len(near) > 0 {
				t := newTable(e.out)
				t.SetTitle("No match for %q; nearest entries", label)
				t.AppendHeader(table.Row{"Name", "Similarity", "USD"})
				for _, s := range near {
					t.AppendRow(table.Row{s.Entry.Name, fmt.Sprintf("%.2f", s.Similarity), s.Entry.PriceUSD})
				}
				t.Render()
			}
			return fmt.Errorf("%w: %q (%d entries searched)", ErrNoMatch, label, resolver.CatalogSize())
		},
	}

	cmd.Flags().IntVarP(&suggestions, "suggestions", "n", 3, "nearest entries to show when nothing matches")
	return cmd
}
