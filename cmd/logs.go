package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssrsss/API-Check/internal/models"
)

var (
	logsEndpoint string
	logsErrors   bool
	logsLimit    int
	logsOffset   int
	logsJSON     bool
	logsYes      bool

	logsCmd = &cobra.Command{
		Use:   "logs",
		Short: "Inspect the audit log",
	}

	logsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List recorded probes, most recent first",
		RunE:  runLogsList,
	}

	logsStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show rolling statistics over recent records",
		RunE:  runLogsStats,
	}

	logsClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded probes",
		RunE:  runLogsClear,
	}
)

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsListCmd)
	logsCmd.AddCommand(logsStatsCmd)
	logsCmd.AddCommand(logsClearCmd)

	logsListCmd.Flags().StringVarP(&logsEndpoint, "endpoint", "e", "", "filter by endpoint id")
	logsListCmd.Flags().BoolVar(&logsErrors, "errors", false, "only non-2xx and transport failures")
	logsListCmd.Flags().IntVarP(&logsLimit, "limit", "n", 50, "maximum records to show")
	logsListCmd.Flags().IntVar(&logsOffset, "offset", 0, "records to skip")
	logsListCmd.Flags().BoolVar(&logsJSON, "json", false, "output records as JSON")

	logsClearCmd.Flags().BoolVarP(&logsYes, "yes", "y", false, "skip confirmation")
}

func runLogsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	filter := models.LogFilter{
		EndpointID: logsEndpoint,
		ErrorsOnly: logsErrors,
		Limit:      logsLimit,
		Offset:     logsOffset,
	}
	ctx := context.Background()

	recs, err := store.Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to query audit log: %w", err)
	}

	if logsJSON {
		return outputJSON(recs)
	}

	if len(recs) == 0 {
		fmt.Println("No records found")
		return nil
	}

	for _, rec := range recs {
		ts := time.UnixMilli(rec.Timestamp).Format("2006-01-02 15:04:05")
		status := fmt.Sprintf("%d", rec.StatusCode)
		if rec.StatusCode == 0 {
			status = "ERR"
		}
		fmt.Printf("%s  %-4s %-18s %-20s %5dms  %s %s\n",
			ts, status, rec.Kind, rec.EndpointName, rec.LatencyMs, rec.Method, rec.URL)
		if rec.Error != "" {
			fmt.Printf("%27s↳ %s\n", "", rec.Error)
		}
	}
	fmt.Printf("\n%d record(s)\n", len(recs))

	return nil
}

func runLogsStats(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	fmt.Println("📊 Audit log statistics (recent window)")
	fmt.Printf("   Total:        %d\n", stats.Total)
	fmt.Printf("   Success:      %d\n", stats.SuccessCount)
	fmt.Printf("   Errors:       %d\n", stats.ErrorCount)
	fmt.Printf("   Avg Latency:  %d ms\n", stats.AvgLatencyMs)

	return nil
}

func runLogsClear(cmd *cobra.Command, args []string) error {
	if !logsYes {
		fmt.Print("Delete all audit log records? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("failed to clear audit log: %w", err)
	}

	fmt.Println("✅ Audit log cleared")
	return nil
}
