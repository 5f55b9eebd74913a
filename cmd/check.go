package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssrsss/API-Check/internal/config"
	"github.com/ssrsss/API-Check/internal/models"
	"github.com/ssrsss/API-Check/internal/runner"
	"github.com/ssrsss/API-Check/internal/tui"
)

var (
	checkKeys        []string
	checkKeysFile    string
	checkModels      []string
	checkRounds      int
	checkTimeout     int
	checkStream      bool
	checkInteractive bool
	checkJSON        bool

	checkCmd = &cobra.Command{
		Use:   "check <endpoint>",
		Short: "Check a matrix of API keys against a matrix of models",
		Long: `Run a latency probe for every (key, model) pair against one endpoint. Keys
come from --keys or one-per-line from --keys-file; by default the endpoint's
own key is used. Keys are masked in all output; the audit log records the
endpoint, never the key.`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringSliceVarP(&checkKeys, "keys", "k", nil, "API keys to check")
	checkCmd.Flags().StringVar(&checkKeysFile, "keys-file", "", "file with one API key per line")
	checkCmd.Flags().StringSliceVarP(&checkModels, "models", "m", nil, "models to test (default: endpoint's model list)")
	checkCmd.Flags().IntVarP(&checkRounds, "rounds", "r", 0, "rounds per pair (default from config)")
	checkCmd.Flags().IntVarP(&checkTimeout, "timeout", "t", 0, "per-request timeout in seconds (default from config)")
	checkCmd.Flags().BoolVar(&checkStream, "stream", false, "use streaming completions")
	checkCmd.Flags().BoolVarP(&checkInteractive, "interactive", "i", false, "watch the run in an interactive TUI")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output results as JSON")
}

// readKeysFile loads one key per line, skipping blanks and comments.
func readKeysFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keys file: %w", err)
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keys file: %w", err)
	}
	return keys, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	endpoint, err := configMgr.FindEndpoint(args[0])
	if err != nil {
		return err
	}

	keys := checkKeys
	if checkKeysFile != "" {
		fileKeys, err := readKeysFile(checkKeysFile)
		if err != nil {
			return err
		}
		keys = append(keys, fileKeys...)
	}
	if len(keys) == 0 {
		keys = []string{endpoint.APIKey}
	}

	modelIDs := checkModels
	if len(modelIDs) == 0 {
		modelIDs = endpoint.Models
	}
	if len(modelIDs) == 0 {
		return fmt.Errorf("no models to test: endpoint %q has no model list, use --models", endpoint.Name)
	}

	settings := configMgr.GetSettings()
	timeout := checkTimeout
	if timeout <= 0 {
		timeout = settings.TestTimeout
	}
	rounds := checkRounds
	if rounds <= 0 {
		rounds = settings.TestRounds
	}
	stream := checkStream || settings.Stream

	executor, store, err := newExecutor()
	if err != nil {
		return err
	}
	defer store.Close()

	// One config copy per key so workers never share a mutable credential.
	// Task keys are masked up front: result ids are what gets displayed.
	tasks := make([]runner.Task, 0, len(keys)*len(modelIDs))
	for _, key := range keys {
		cfg := *endpoint
		cfg.APIKey = key
		for _, id := range modelIDs {
			tasks = append(tasks, runner.Task{
				Key:    config.MaskAPIKey(key),
				Model:  id,
				Config: &cfg,
			})
		}
	}

	probeFn := func(ctx context.Context, task runner.Task, round int) models.ProbeResult {
		return executor.TestLatency(ctx, task.Config, task.Model, timeout, stream)
	}

	title := fmt.Sprintf("Checking %s: %d key(s) × %d model(s), %d round(s)", endpoint.Name, len(keys), len(modelIDs), rounds)

	var results map[string]models.AggregatedResult
	if checkInteractive {
		app := tui.NewApp(title, func(onProgress func(runner.Progress), onUpdate func(runner.Task, models.AggregatedResult)) map[string]models.AggregatedResult {
			sched := &runner.Scheduler{
				Workers:    settings.TestConcurrency,
				Rounds:     rounds,
				OnProgress: onProgress,
				OnUpdate:   onUpdate,
			}
			return sched.Run(context.Background(), tasks, probeFn)
		})
		results, err = app.Run()
		if err != nil {
			return fmt.Errorf("interactive run failed: %w", err)
		}
	} else {
		fmt.Println(title)
		sched := &runner.Scheduler{
			Workers: settings.TestConcurrency,
			Rounds:  rounds,
			OnProgress: func(p runner.Progress) {
				plainProgress(p.Completed, p.Total)
			},
		}
		results = sched.Run(context.Background(), tasks, probeFn)
	}

	if checkJSON {
		return outputJSON(results)
	}

	outputTextResults(fmt.Sprintf("CHECK RESULTS: %s", endpoint.Name), results)

	passed := 0
	for _, agg := range results {
		if agg.Status.OK() {
			passed++
		}
	}
	fmt.Printf("\n%d/%d pair(s) passed\n", passed, len(results))

	return nil
}
