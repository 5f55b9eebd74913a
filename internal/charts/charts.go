package charts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/ssrsss/API-Check/internal/models"
)

// ChartGenerator renders aggregated probe results as terminal charts
type ChartGenerator struct {
	width  int
	height int
}

// NewChartGenerator creates a new chart generator with specified dimensions
func NewChartGenerator(width, height int) *ChartGenerator {
	return &ChartGenerator{
		width:  width,
		height: height,
	}
}

// LegendEntry represents a single entry in the chart legend
type LegendEntry struct {
	Label string
	Value float64
	Unit  string
	Color string
}

// generateLegend creates a formatted legend showing the numerical values
func (cg *ChartGenerator) generateLegend(entries []LegendEntry, title string) string {
	if len(entries) == 0 {
		return ""
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})

	var legend strings.Builder
	legend.WriteString(fmt.Sprintf("\n📋 %s Legend:\n", title))
	legend.WriteString(strings.Repeat("─", cg.width) + "\n")

	maxLabelLen := 0
	for _, entry := range entries {
		if len(entry.Label) > maxLabelLen {
			maxLabelLen = len(entry.Label)
		}
	}

	for _, entry := range entries {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(entry.Color))
		indicator := colorStyle.Render("■")

		paddedLabel := fmt.Sprintf("%-*s", maxLabelLen, entry.Label)
		legend.WriteString(fmt.Sprintf("  %s %s: %.0f %s\n",
			indicator, paddedLabel, entry.Value, entry.Unit))
	}

	return legend.String()
}

// GenerateLatencyChart creates a bar chart showing average latency per task
func (cg *ChartGenerator) GenerateLatencyChart(results map[string]models.AggregatedResult) string {
	if len(results) == 0 {
		return "No data available for latency chart"
	}

	var validKeys []string
	for key, agg := range results {
		if agg.AvgLatencyMs > 0 {
			validKeys = append(validKeys, key)
		}
	}

	if len(validKeys) == 0 {
		return "No successful probes to chart"
	}

	sort.Strings(validKeys) // Ensure consistent ordering

	var barData []barchart.BarData
	var legendEntries []LegendEntry
	colors := []string{"10", "9", "11", "12", "13", "14", "15", "6"}

	for i, key := range validKeys {
		agg := results[key]
		latency := float64(agg.AvgLatencyMs)
		color := colors[i%len(colors)]

		barData = append(barData, barchart.BarData{
			Label: key,
			Values: []barchart.BarValue{
				{Name: "Latency", Value: latency, Style: lipgloss.NewStyle().Foreground(lipgloss.Color(color))},
			},
		})

		legendEntries = append(legendEntries, LegendEntry{
			Label: key,
			Value: latency,
			Unit:  "ms",
			Color: color,
		})
	}

	bc := barchart.New(cg.width, cg.height)
	bc.PushAll(barData)
	bc.Draw()

	result := fmt.Sprintf("📊 Average Latency (ms)\n%s\n%s",
		strings.Repeat("─", cg.width), bc.View())

	result += cg.generateLegend(legendEntries, "Latency Values")

	return result
}
