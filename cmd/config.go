package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ssrsss/API-Check/internal/config"
	"github.com/ssrsss/API-Check/internal/service"
)

var (
	configInitPath string

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE:  runConfigInit,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the loaded configuration with masked keys",
		RunE:  runConfigShow,
	}

	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE:  runConfigValidate,
	}

	configExtractCmd = &cobra.Command{
		Use:   "extract [text]",
		Short: "Extract an endpoint config from pasted text using an LLM",
		Long: `Feed free text such as a curl command or documentation snippet to the
configured assistant model and print the extracted endpoint as YAML, ready to
paste into the endpoints list. Text is read from the argument or stdin.
Requires an [assistant] section in the configuration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigExtract,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configExtractCmd)

	configInitCmd.Flags().StringVarP(&configInitPath, "output", "o", "apicheck.yaml", "where to write the sample config")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configInitPath); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", configInitPath)
	}

	mgr := config.NewManager()
	if err := mgr.CreateSampleConfig(configInitPath); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}

	fmt.Printf("✅ Sample configuration written to %s\n", configInitPath)
	fmt.Println("Edit it with your endpoints and API keys, then run 'apicheck config validate'.")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := configMgr.GetConfig()

	fmt.Printf("Endpoints (%d):\n", len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		fmt.Printf("\n  %s (%s)\n", ep.Name, ep.ConnectionMode)
		if ep.BaseURL != "" {
			fmt.Printf("    base_url:  %s\n", ep.BaseURL)
		}
		if ep.ModelsEndpoint != "" {
			fmt.Printf("    models:    %s\n", ep.ModelsEndpoint)
		}
		if ep.ChatEndpoint != "" {
			fmt.Printf("    chat:      %s\n", ep.ChatEndpoint)
		}
		fmt.Printf("    api_key:   %s\n", config.MaskAPIKey(ep.APIKey))
		if len(ep.Models) > 0 {
			fmt.Printf("    models:    %s\n", strings.Join(ep.Models, ", "))
		}
	}

	s := cfg.Settings
	fmt.Println("\nSettings:")
	fmt.Printf("  test_timeout:     %d\n", s.TestTimeout)
	fmt.Printf("  test_concurrency: %d\n", s.TestConcurrency)
	fmt.Printf("  test_rounds:      %d\n", s.TestRounds)
	fmt.Printf("  stream:           %t\n", s.Stream)
	fmt.Printf("\nLog path: %s\n", configMgr.LogPath())

	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Loading already validates; reaching this point means the config parsed
	// and passed every check.
	fmt.Printf("✅ Configuration is valid: %d endpoint(s)\n", len(configMgr.GetEndpoints()))
	return nil
}

func runConfigExtract(cmd *cobra.Command, args []string) error {
	assistant := configMgr.GetConfig().Assistant
	if assistant.APIKey == "" || assistant.Model == "" {
		return fmt.Errorf("config extract needs an assistant section with api_key and model")
	}

	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to extract: pass text as an argument or on stdin")
	}

	extractor := service.NewExtractor(assistant.BaseURL, assistant.APIKey, assistant.Model)

	fmt.Fprintln(os.Stderr, "Extracting endpoint configuration...")
	endpoint, err := extractor.Extract(context.Background(), text)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal([]any{endpoint})
	if err != nil {
		return fmt.Errorf("failed to render YAML: %w", err)
	}

	fmt.Fprintln(os.Stderr, "✅ Extracted endpoint (append under 'endpoints:'):")
	fmt.Print(string(out))

	return nil
}
