package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type column struct {
	header string
	align  text.Align
}

func leftColumn(header string) column  { return column{header: header, align: text.AlignLeft} }
func rightColumn(header string) column { return column{header: header, align: text.AlignRight} }

// renderTable draws rows under columns; short rows are padded with "-".
// A non-empty footer is placed under the first column.
func renderTable(columns []column, rows [][]string, footer string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.header
		configs[i] = table.ColumnConfig{Number: i + 1, Align: col.align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			r[i] = "-"
			if i < len(row) && row[i] != "" {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	if footer != "" {
		tw.AppendFooter(table.Row{footer})
	}
	return tw.Render()
}
