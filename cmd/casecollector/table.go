package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"CaseCollector/internal/usecase"
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

func renderSummary(report usecase.RunReport) string {
	s := report.Summary
	rows := [][]string{
		{"fetched", strconv.Itoa(s.Fetched)},
		{"failed fetches", strconv.Itoa(s.FailedFetches)},
		{"duplicates", strconv.Itoa(s.Duplicates)},
		{"filtered out", strconv.Itoa(s.FilteredOut)},
		{"dropped", strconv.Itoa(s.Dropped)},
		{"persisted", strconv.Itoa(s.Persisted)},
		{"auto-approved", strconv.Itoa(s.AutoApproved)},
		{"pending", strconv.Itoa(s.Pending)},
		{"review entries", strconv.Itoa(s.ReviewEntries)},
	}

	tiers := make([]int, 0, len(s.ByTier))
	for tier := range s.ByTier {
		tiers = append(tiers, tier)
	}
	sort.Ints(tiers)
	for _, tier := range tiers {
		rows = append(rows, []string{fmt.Sprintf("tier %d", tier), strconv.Itoa(s.ByTier[tier])})
	}
	for _, key := range sortedKeys(s.BySource) {
		rows = append(rows, []string{"source " + key, strconv.Itoa(s.BySource[key])})
	}
	for _, key := range sortedKeys(s.ByCollection) {
		rows = append(rows, []string{"collection " + key, strconv.Itoa(s.ByCollection[key])})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s)\n", report.RunID, report.Classifier)
	b.WriteString(renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(report.Suggestions) > 0 {
		suggestionRows := make([][]string, 0, len(report.Suggestions))
		for _, sg := range report.Suggestions {
			suggestionRows = append(suggestionRows, []string{sg.Term, strconv.Itoa(sg.Frequency)})
		}
		b.WriteString("\nSuggested terms\n")
		b.WriteString(renderTable([]string{"Term", "Frequency"}, suggestionRows, []columnAlignment{alignLeft, alignRight}))
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
