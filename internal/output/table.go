package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/iamshnoo/soc-bias/domain/weat"
)

// Table provides table rendering utilities
type Table struct {
	table  *tablewriter.Table
	header []string
	rows   [][]string
}

// NewTable creates a new table writing to w
func NewTable(w io.Writer, headers []string) *Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)
	return &Table{table: table, header: headers}
}

// AddRow adds a row to the table
func (t *Table) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

// Render outputs the table
func (t *Table) Render() error {
	t.table.Header(t.header)
	if err := t.table.Bulk(t.rows); err != nil {
		return err
	}
	return t.table.Render()
}

// PrintEntries renders a run's entries as a table in entry order
func (p *Printer) PrintEntries(entries []weat.Entry) error {
	if p.quiet {
		return nil
	}
	table := NewTable(p.out, []string{"Test", "Model", "Effect Size", "P-Value"})
	for _, e := range entries {
		switch {
		case e.Result != nil:
			table.AddRow(e.Result.TestID, e.Result.EmbeddingModel,
				fmt.Sprintf("%+.4f", e.Result.EffectSize), p.Significance(e.Result.PValue))
		case e.Failure != nil:
			table.AddRow(e.Failure.TestID, e.Failure.EmbeddingModel, p.Failure(e.Failure.Kind), "-")
		}
	}
	return table.Render()
}
