package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssrsss/API-Check/internal/models"
	"github.com/ssrsss/API-Check/internal/runner"
)

var (
	toolsModels  []string
	toolsRounds  int
	toolsTimeout int
	toolsJSON    bool

	toolsCmd = &cobra.Command{
		Use:   "tools <endpoint>",
		Short: "Test function-calling support per model",
		Long: `Send a chat completion carrying a single tool definition to every model of
an endpoint and check whether the reply invokes it. A model is reported as
supported when at least one round returns a tool call.`,
		Args: cobra.ExactArgs(1),
		RunE: runTools,
	}
)

func init() {
	rootCmd.AddCommand(toolsCmd)

	toolsCmd.Flags().StringSliceVarP(&toolsModels, "models", "m", nil, "models to test (default: endpoint's model list)")
	toolsCmd.Flags().IntVarP(&toolsRounds, "rounds", "r", 0, "rounds per model (default from config)")
	toolsCmd.Flags().IntVarP(&toolsTimeout, "timeout", "t", 0, "per-request timeout in seconds (default from config)")
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "output results as JSON")
}

func runTools(cmd *cobra.Command, args []string) error {
	endpoint, err := configMgr.FindEndpoint(args[0])
	if err != nil {
		return err
	}

	modelIDs := toolsModels
	if len(modelIDs) == 0 {
		modelIDs = endpoint.Models
	}
	if len(modelIDs) == 0 {
		return fmt.Errorf("no models to test: endpoint %q has no model list, use --models", endpoint.Name)
	}

	settings := configMgr.GetSettings()
	timeout := toolsTimeout
	if timeout <= 0 {
		timeout = settings.TestTimeout
	}
	rounds := toolsRounds
	if rounds <= 0 {
		rounds = settings.TestRounds
	}

	executor, store, err := newExecutor()
	if err != nil {
		return err
	}
	defer store.Close()

	tasks := make([]runner.Task, 0, len(modelIDs))
	for _, id := range modelIDs {
		tasks = append(tasks, runner.Task{Model: id, Config: endpoint})
	}

	fmt.Printf("Testing tool support on %s: %d model(s), %d round(s)\n", endpoint.Name, len(tasks), rounds)

	sched := &runner.Scheduler{
		Workers: settings.TestConcurrency,
		Rounds:  rounds,
		OnProgress: func(p runner.Progress) {
			plainProgress(p.Completed, p.Total)
		},
	}

	results := sched.Run(context.Background(), tasks, func(ctx context.Context, task runner.Task, round int) models.ProbeResult {
		return executor.TestToolSupport(ctx, task.Config, task.Model, timeout)
	})

	if toolsJSON {
		return outputJSON(results)
	}

	outputTextResults(fmt.Sprintf("TOOL SUPPORT RESULTS: %s", endpoint.Name), results)

	supported := 0
	for _, agg := range results {
		if agg.Status == models.StatusSupported {
			supported++
		}
	}
	fmt.Printf("\n%d/%d model(s) support function calling\n", supported, len(results))

	return nil
}
