package cli

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/okian/appraiser/internal/domain/model"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func renderValuation(w io.Writer, res model.ValuationResult) {
	t := newTable(w)
	if !res.Success {
		t.AppendHeader(table.Row{"Player", "Error"})
		t.AppendRow(table.Row{res.PlayerID, res.Error})
		t.Render()
		return
	}
	t.SetTitle("%s (%d categories)", res.PlayerID, res.CategoriesProcessed)
	t.AppendHeader(table.Row{"Item", "Category", "USD", "Coins", "Shards"})
	for _, it := range res.Items {
		t.AppendRow(table.Row{it.Name, it.Category, it.USD, it.Coins, it.Shards})
	}
	t.AppendFooter(table.Row{"Total", res.ItemCount, res.TotalUSD, res.TotalCoins, res.TotalShards})
	t.Render()
}
