// Package display renders reveal summaries for the terminal.
package display

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/beaconmixer/beacon"
	"github.com/lox/beaconmixer/internal/archive"
	"github.com/lox/beaconmixer/internal/audit"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	tierColors = map[beacon.Tier]lipgloss.Color{
		beacon.Unassigned: lipgloss.Color("#626262"),
		beacon.Standard:   lipgloss.Color("#FAFAFA"),
		beacon.Rare:       lipgloss.Color("#4EA8DE"),
		beacon.Mythic:     lipgloss.Color("#C77DFF"),
		beacon.Ultra:      lipgloss.Color("#FFD700"),
	}
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		})
}

// TierLabel colours a tier name.
func TierLabel(t beacon.Tier) string {
	return lipgloss.NewStyle().Foreground(tierColors[t]).Render(t.String())
}

// Counts renders per-tier totals, unassigned last.
func Counts(title string, c beacon.Counts) string {
	t := newTable("Beacon", "Tokens", "Share")
	total := c.Total()
	for _, tier := range append(beacon.Tiers[:len(beacon.Tiers):len(beacon.Tiers)], beacon.Unassigned) {
		if c[tier] == 0 {
			continue
		}
		t.Row(TierLabel(tier), strconv.Itoa(c[tier]), percent(c[tier], total))
	}
	t.Row("Total", strconv.Itoa(total), "")
	return lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), t.String())
}

// Verification renders stage verification reports.
func Verification(reports []audit.StageReport) string {
	t := newTable("Stage", "Block", "Assigned", "Result")
	for _, r := range reports {
		result := SuccessStyle.Render("reproduced")
		if !r.OK() {
			result = ErrorStyle.Render(fmt.Sprintf("%d differ (first #%d)", r.Mismatches, r.FirstMismatch))
		}
		t.Row(r.Stage, strconv.FormatUint(r.BlockNumber, 10), strconv.Itoa(r.Counts.Assigned()), result)
	}
	return t.String()
}

// Spreads renders uniformity results; p-values under alpha are flagged.
func Spreads(spreads []audit.TierSpread, alpha float64) string {
	t := newTable("Beacon", "Tokens", "Chi²", "DF", "p-value")
	for _, s := range spreads {
		p := fmt.Sprintf("%.4f", s.PValue)
		if s.PValue < alpha {
			p = WarningStyle.Render(p)
		}
		t.Row(TierLabel(s.Tier), strconv.Itoa(s.Count), fmt.Sprintf("%.2f", s.ChiSquare), strconv.Itoa(s.DF), p)
	}
	return t.String()
}

// History renders archived stage runs.
func History(entries []archive.Entry) string {
	t := newTable("#", "Stage", "Block", "Run", "Digest", "When")
	for _, e := range entries {
		t.Row(
			strconv.FormatUint(e.Seq, 10),
			e.Stage,
			strconv.FormatUint(e.BlockNumber, 10),
			shorten(e.RunID, 8),
			shorten(e.Digest, 12),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return t.String()
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", 100*float64(n)/float64(total))
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "…"
}
