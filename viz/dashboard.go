// ABOUTME: Terminal dashboard rendering
// ABOUTME: Draws metrics, pipeline bars and the recent activity feed as plain text
package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/crmdeck/pages"
	"github.com/harperreed/crmdeck/pipeline"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"

func RenderDashboard(v pages.DashboardView) string {
	var out strings.Builder

	out.WriteString(rule)
	out.WriteString("  CRMDECK DASHBOARD\n")
	out.WriteString(rule + "\n")

	if v.Error != "" {
		out.WriteString(fmt.Sprintf("  Failed to load dashboard: %s\n", v.Error))
		return out.String()
	}

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  %d contacts  %d active deals  %.1f%% conversion  %s revenue\n\n",
		v.Metrics.TotalContacts, v.Metrics.ActiveDeals, v.Metrics.ConversionRate, FormatMoney(v.Metrics.TotalRevenue)))

	out.WriteString("PIPELINE OVERVIEW\n")
	RenderPipeline(&out, v.Board)
	out.WriteString("\n")

	out.WriteString("RECENT ACTIVITY\n")
	if len(v.Recent) == 0 {
		out.WriteString("  No recent activity\n")
	}
	for _, a := range v.Recent {
		who := v.ContactName(a.ContactID)
		if deal := v.DealTitle(a.DealID); deal != "" {
			if who != "" {
				who += " / "
			}
			who += deal
		}
		line := fmt.Sprintf("  %s  %-7s %s", a.Timestamp.Format("Jan 02 15:04"), a.Type, a.Description)
		if who != "" {
			line += "  (" + who + ")"
		}
		out.WriteString(line + "\n")
	}

	if !v.LastUpdated.IsZero() {
		out.WriteString(fmt.Sprintf("\nUpdated %s\n", v.LastUpdated.Format(time.Kitchen)))
	}
	return out.String()
}

// RenderPipeline writes one bar per stage scaled to the busiest stage.
func RenderPipeline(out *strings.Builder, board pipeline.Board) {
	maxCount := 0
	for _, col := range board.Columns {
		if col.Count() > maxCount {
			maxCount = col.Count()
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, col := range board.Columns {
		barLength := (col.Count() * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-10s %s  %2d (%s)\n", col.Stage.Label, bar, col.Count(), FormatMoney(col.TotalValue)))
	}
	if board.Excluded > 0 {
		out.WriteString(fmt.Sprintf("  %d deals with an unknown stage are not shown\n", board.Excluded))
	}
}

// FormatMoney renders whole dollars with thousands separators.
func FormatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
