package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ilkoid/creative-sorter/internal/reorganizer"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderRunSummary печатает итог прогона: счётчики, невалидные креативы и бюджеты.
func renderRunSummary(res *reorganizer.Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Run "+res.RunID) + "\n")
	b.WriteString(renderTable(
		[]string{"Metric", "Value"},
		[][]string{
			{"Started", res.StartedAt.Format(time.DateTime)},
			{"Duration", res.Duration.Round(time.Millisecond).String()},
			{"Listed", strconv.Itoa(res.Listed)},
			{"Skipped (bad name)", strconv.Itoa(len(res.Skipped))},
			{"Processed", strconv.Itoa(len(res.Processed))},
			{"Uploaded", strconv.Itoa(len(res.Uploaded))},
			{"Valid", strconv.Itoa(res.Validation.ValidAssets)},
			{"Invalid", strconv.Itoa(res.Validation.InvalidAssets)},
			{"Errors", strconv.Itoa(res.Validation.Errors)},
			{"Reports", res.ReportsDir},
		},
		[]columnAlignment{alignLeft, alignRight},
	))
	b.WriteString("\n")

	if len(res.Validation.InvalidDetails) > 0 {
		rows := make([][]string, 0, len(res.Validation.InvalidDetails))
		for _, inv := range res.Validation.InvalidDetails {
			rows = append(rows, []string{inv.Filename, strings.Join(inv.Reasons, "; ")})
		}
		b.WriteString("\n" + warnStyle.Render("Invalid assets") + "\n")
		b.WriteString(renderTable([]string{"File", "Reasons"}, rows, nil) + "\n")
	}

	if len(res.Validation.ErrorDetails) > 0 {
		rows := make([][]string, 0, len(res.Validation.ErrorDetails))
		for _, e := range res.Validation.ErrorDetails {
			rows = append(rows, []string{e.Filename, e.Error})
		}
		b.WriteString("\n" + errorStyle.Render("Errors") + "\n")
		b.WriteString(renderTable([]string{"File", "Error"}, rows, nil) + "\n")
	}

	if s := res.Budget; s != nil {
		b.WriteString("\n" + titleStyle.Render("Budget") + "\n")
		b.WriteString(renderTable(
			[]string{"Ads", "Increased", "Decreased", "Unchanged", "Skipped"},
			[][]string{{
				strconv.Itoa(s.TotalAds),
				strconv.Itoa(s.Increased),
				strconv.Itoa(s.Decreased),
				strconv.Itoa(s.Unchanged),
				strconv.Itoa(len(s.Skipped)),
			}},
			[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
		) + "\n")

		if len(s.Changes) > 0 {
			rows := make([][]string, 0, len(s.Changes))
			for _, c := range s.Changes {
				rows = append(rows, []string{
					c.Filename,
					c.AdID,
					strconv.Itoa(c.PreviousBudget),
					strconv.Itoa(c.NewBudget),
					c.Reason,
				})
			}
			b.WriteString(renderTable(
				[]string{"File", "Ad", "Before", "After", "Reason"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			) + "\n")
		}
		if res.BudgetFile != "" {
			b.WriteString(fmt.Sprintf("Budget report: %s\n", res.BudgetFile))
		}
	}

	return b.String()
}
