package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	markStyle   = cellStyle.Foreground(lipgloss.Color("#88CCFF"))
)

// renderTable lays out rows under headers. Rows for which marked returns true
// are highlighted.
func renderTable(headers []string, rows [][]string, marked func(row int) bool) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case marked != nil && marked(row):
				return markStyle
			default:
				return cellStyle
			}
		})
	return t.Render()
}
