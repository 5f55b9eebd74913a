package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssrsss/API-Check/internal/models"
	"github.com/ssrsss/API-Check/internal/runner"
)

var (
	latencyModels  []string
	latencyRounds  int
	latencyTimeout int
	latencyStream  bool
	latencyCharts  bool
	latencyJSON    bool

	latencyCmd = &cobra.Command{
		Use:   "latency <endpoint>",
		Short: "Measure chat completion latency per model",
		Long: `Send a minimal chat completion to every model of an endpoint and measure
the end-to-end latency. Models come from the endpoint's configured model list
unless overridden with --models. Rounds beyond the first are averaged.`,
		Args: cobra.ExactArgs(1),
		RunE: runLatency,
	}
)

func init() {
	rootCmd.AddCommand(latencyCmd)

	latencyCmd.Flags().StringSliceVarP(&latencyModels, "models", "m", nil, "models to test (default: endpoint's model list)")
	latencyCmd.Flags().IntVarP(&latencyRounds, "rounds", "r", 0, "rounds per model (default from config)")
	latencyCmd.Flags().IntVarP(&latencyTimeout, "timeout", "t", 0, "per-request timeout in seconds (default from config)")
	latencyCmd.Flags().BoolVar(&latencyStream, "stream", false, "use streaming completions")
	latencyCmd.Flags().BoolVar(&latencyCharts, "charts", false, "render a latency bar chart")
	latencyCmd.Flags().BoolVar(&latencyJSON, "json", false, "output results as JSON")
}

func runLatency(cmd *cobra.Command, args []string) error {
	endpoint, err := configMgr.FindEndpoint(args[0])
	if err != nil {
		return err
	}

	modelIDs := latencyModels
	if len(modelIDs) == 0 {
		modelIDs = endpoint.Models
	}
	if len(modelIDs) == 0 {
		return fmt.Errorf("no models to test: endpoint %q has no model list, use --models", endpoint.Name)
	}

	settings := configMgr.GetSettings()
	timeout := latencyTimeout
	if timeout <= 0 {
		timeout = settings.TestTimeout
	}
	rounds := latencyRounds
	if rounds <= 0 {
		rounds = settings.TestRounds
	}
	stream := latencyStream || settings.Stream

	executor, store, err := newExecutor()
	if err != nil {
		return err
	}
	defer store.Close()

	tasks := make([]runner.Task, 0, len(modelIDs))
	for _, id := range modelIDs {
		tasks = append(tasks, runner.Task{Model: id, Config: endpoint})
	}

	fmt.Printf("Testing latency on %s: %d model(s), %d round(s)\n", endpoint.Name, len(tasks), rounds)

	sched := &runner.Scheduler{
		Workers: settings.TestConcurrency,
		Rounds:  rounds,
		OnProgress: func(p runner.Progress) {
			plainProgress(p.Completed, p.Total)
		},
	}

	results := sched.Run(context.Background(), tasks, func(ctx context.Context, task runner.Task, round int) models.ProbeResult {
		return executor.TestLatency(ctx, task.Config, task.Model, timeout, stream)
	})

	if latencyJSON {
		return outputJSON(results)
	}

	outputTextResults(fmt.Sprintf("LATENCY RESULTS: %s", endpoint.Name), results)
	if latencyCharts {
		outputLatencyChart(results)
	}

	return nil
}
