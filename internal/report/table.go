package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Alignment selects how a column's cells are aligned.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// RenderTable renders rows under headers with rounded borders. Missing cells
// render empty.
func RenderTable(headers []string, rows [][]string, aligns []Alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// Render formats the summary as a counters table followed, when present, by
// an issues table.
func (s *Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s in %s (run %s)\n", s.Command, s.Outcome, s.Duration.Round(time.Millisecond), s.RunID)
	if s.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", s.Error)
	}

	if len(s.Counts) > 0 {
		rows := make([][]string, 0, len(s.Counts))
		for _, c := range s.Counts {
			rows = append(rows, []string{c.Name, strconv.Itoa(c.Value)})
		}
		b.WriteString(RenderTable([]string{"Count", "Value"}, rows, []Alignment{AlignLeft, AlignRight}))
		b.WriteByte('\n')
	}

	if len(s.Issues) > 0 {
		rows := make([][]string, 0, len(s.Issues))
		for _, issue := range s.Issues {
			rows = append(rows, []string{issue.Stage, issue.Reason, strconv.Itoa(issue.Count)})
		}
		b.WriteString(RenderTable([]string{"Stage", "Reason", "Items"}, rows, []Alignment{AlignLeft, AlignLeft, AlignRight}))
		b.WriteByte('\n')
	}

	if s.OutputPath != "" {
		fmt.Fprintf(&b, "output: %s\n", s.OutputPath)
	}
	return b.String()
}
