package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ssrsss/API-Check/internal/charts"
	"github.com/ssrsss/API-Check/internal/models"
)

func statusIcon(status models.ProbeStatus) string {
	switch status {
	case models.StatusSuccess, models.StatusSupported:
		return "✅"
	case models.StatusUnsupported:
		return "⚠️ "
	default:
		return "❌"
	}
}

// outputTextResults prints the aggregate table for a finished run
func outputTextResults(title string, results map[string]models.AggregatedResult) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 80))

	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		agg := results[key]
		fmt.Printf("\n%s %s\n", statusIcon(agg.Status), key)
		fmt.Printf("   Status:       %s\n", agg.Status)
		fmt.Printf("   Avg Latency:  %d ms\n", agg.AvgLatencyMs)
		fmt.Printf("   Success:      %d/%d rounds\n", agg.SuccessCount, agg.Rounds)
		if agg.Message != "" && !agg.Status.OK() {
			fmt.Printf("   Message:      %s\n", agg.Message)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
}

// outputJSON prints any value as indented JSON
func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// outputLatencyChart renders the per-task latency bar chart
func outputLatencyChart(results map[string]models.AggregatedResult) {
	chartGen := charts.NewChartGenerator(60, 15)
	fmt.Println(chartGen.GenerateLatencyChart(results))
}

// plainProgress prints a carriage-return progress line for non-TUI runs
func plainProgress(completed, total int) {
	fmt.Printf("\rTesting: %d/%d completed", completed, total)
	if completed == total {
		fmt.Printf(" ✅\n")
	}
}
