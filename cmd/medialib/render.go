package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"medialib/internal/client"
	"medialib/pkg/models"
	"medialib/pkg/search"
)

var (
	includeChipStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(lipgloss.Color("#0b1f12")).
				Background(lipgloss.Color("#6cc18b"))

	excludeChipStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(lipgloss.Color("#2a0d10")).
				Background(lipgloss.Color("#d1606b"))

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#d7d9da"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f8a96"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6cc18b"))
)

// renderChips numbers chips from 1 so they can be passed to --remove.
func renderChips(chips []search.Chip) string {
	if len(chips) == 0 {
		return dimStyle.Render("no filters")
	}
	parts := make([]string, len(chips))
	for i, c := range chips {
		style := includeChipStyle
		if c.Exclude {
			style = excludeChipStyle
		}
		parts[i] = dimStyle.Render(strconv.Itoa(i+1)) + " " + style.Render(c.String())
	}
	return strings.Join(parts, "  ")
}

// renderTable left-aligns cells to the widest entry of each column.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			out[i] = style.Width(widths[i]).Render(cell)
		}
		return strings.Join(out, "  ")
	}

	lines := []string{line(headers, headerStyle)}
	for _, row := range rows {
		lines = append(lines, line(row, lipgloss.NewStyle()))
	}
	return strings.Join(lines, "\n")
}

func renderFooter(p client.PageInfo) string {
	return dimStyle.Render(fmt.Sprintf("page %d/%d, %d total", p.Page, p.TotalPages, p.Total))
}

func mediaTable(items []models.Media) string {
	rows := make([][]string, len(items))
	for i, m := range items {
		rows[i] = []string{
			strconv.FormatInt(m.ID, 10),
			m.Title,
			m.Type,
			m.Status,
			optInt(m.ReleaseYear),
			optScore(m.Score),
			strings.Join(m.Tags, ", "),
		}
	}
	return renderTable([]string{"ID", "TITLE", "TYPE", "STATUS", "YEAR", "SCORE", "TAGS"}, rows)
}

func characterTable(items []models.Character) string {
	rows := make([][]string, len(items))
	for i, c := range items {
		rows[i] = []string{strconv.FormatInt(c.ID, 10), c.Name, strconv.Itoa(c.Appearances)}
	}
	return renderTable([]string{"ID", "NAME", "APPEARANCES"}, rows)
}

func libraryTable(items []models.LibraryEntry) string {
	rows := make([][]string, len(items))
	for i, e := range items {
		title := ""
		if e.Media != nil {
			title = e.Media.Title
		}
		rows[i] = []string{
			strconv.FormatInt(e.MediaID, 10),
			title,
			e.Status,
			optInt(e.Score),
			strconv.Itoa(e.Progress),
			e.UpdatedAt.Format("2006-01-02"),
		}
	}
	return renderTable([]string{"ID", "TITLE", "STATUS", "SCORE", "PROGRESS", "UPDATED"}, rows)
}

func historyTable(items []models.ProgressHistory) string {
	rows := make([][]string, len(items))
	for i, h := range items {
		rows[i] = []string{h.At.Format("2006-01-02 15:04"), strconv.Itoa(h.Progress), h.Note}
	}
	return renderTable([]string{"AT", "PROGRESS", "NOTE"}, rows)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}
