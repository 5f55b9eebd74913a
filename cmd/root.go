package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ssrsss/API-Check/internal/config"
	"github.com/ssrsss/API-Check/internal/logger"
	"github.com/ssrsss/API-Check/internal/logstore"
	"github.com/ssrsss/API-Check/internal/probe"
)

var (
	cfgFile   string
	verbose   bool
	configMgr *config.Manager
	rootCmd   = &cobra.Command{
		Use:   "apicheck",
		Short: "A probing tool for OpenAI-compatible LLM APIs",
		Long: `APICheck verifies OpenAI-compatible API endpoints: reachability, latency,
function-calling support and many-key × many-model test matrices. Every
request/response pair is recorded to a local audit log for later inspection.`,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/apicheck/apicheck.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	level := "info"
	if verbose {
		level = "debug"
	}
	if _, err := logger.New(level, "console"); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}

	configMgr = config.NewManager()

	// Skip config loading for config init command to avoid chicken-and-egg problem
	if len(os.Args) >= 3 && os.Args[1] == "config" && os.Args[2] == "init" {
		return
	}

	if err := configMgr.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the audit log database configured for this run.
func openStore() (*logstore.Store, error) {
	store, err := logstore.Open(configMgr.LogPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log at %s: %w", configMgr.LogPath(), err)
	}
	return store, nil
}

// newExecutor builds a probe executor backed by the audit log. The caller
// owns closing the returned store.
func newExecutor() (*probe.Executor, *logstore.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return probe.NewExecutor(store), store, nil
}
