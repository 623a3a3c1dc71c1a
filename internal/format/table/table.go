// Package table renders plain listings for the headless subcommands.
package table

import (
	"io"

	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Format returns the rendered table for header and rows. Columns without an
// alignment are left aligned.
func Format(header []string, rows [][]string, alignments []Alignment) string {
	t := pretty.NewWriter()
	t.SetStyle(pretty.StyleLight)
	if len(header) > 0 {
		t.AppendHeader(toRow(header))
	}
	for _, row := range rows {
		t.AppendRow(toRow(row))
	}
	configs := make([]pretty.ColumnConfig, 0, len(alignments))
	for i, align := range alignments {
		if align == AlignRight {
			configs = append(configs, pretty.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	t.SetColumnConfigs(configs)
	return t.Render()
}

// Write renders the table to w followed by a newline.
func Write(w io.Writer, header []string, rows [][]string, alignments []Alignment) error {
	_, err := io.WriteString(w, Format(header, rows, alignments)+"\n")
	return err
}

func toRow(cells []string) pretty.Row {
	row := make(pretty.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}
