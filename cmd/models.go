package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	modelsCmd = &cobra.Command{
		Use:   "models <endpoint>",
		Short: "Fetch the model list from an endpoint",
		Long: `Fetch the list of models offered by a configured endpoint.
The request is authenticated with the endpoint's API key and recorded in the
audit log like every other probe.`,
		Args: cobra.ExactArgs(1),
		RunE: runModels,
	}
)

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	endpoint, err := configMgr.FindEndpoint(args[0])
	if err != nil {
		return err
	}

	executor, store, err := newExecutor()
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Fetching models from %s...\n", endpoint.Name)

	start := time.Now()
	list, err := executor.FetchModels(context.Background(), endpoint)
	if err != nil {
		return fmt.Errorf("model fetch failed: %w", err)
	}

	fmt.Printf("✅ %d model(s) in %v\n\n", len(list), time.Since(start).Round(time.Millisecond))
	for _, model := range list {
		if model.OwnedBy != "" {
			fmt.Printf("  • %s (%s)\n", model.ID, model.OwnedBy)
		} else {
			fmt.Printf("  • %s\n", model.ID)
		}
	}

	return nil
}
