package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ssrsss/API-Check/internal/models"
	"github.com/ssrsss/API-Check/internal/runner"
)

// Assistant points config extraction at an LLM endpoint.
type Assistant struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// Config holds the application configuration: the endpoint list plus the
// global probe settings.
type Config struct {
	Endpoints []models.ApiConfig    `mapstructure:"endpoints"`
	Settings  models.GlobalSettings `mapstructure:"settings"`
	LogPath   string                `mapstructure:"log_path"`
	Assistant Assistant             `mapstructure:"assistant"`
}

// Manager handles configuration loading and management.
type Manager struct {
	config *Config
	viper  *viper.Viper
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{viper: viper.New()}
}

// Load loads configuration from file and environment variables.
func (m *Manager) Load(configPath string) error {
	m.setDefaults()

	if configPath != "" {
		m.viper.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		m.viper.SetConfigName("apicheck")
		m.viper.SetConfigType("yaml")
		m.viper.AddConfigPath(".")
		m.viper.AddConfigPath(filepath.Join(home, ".config", "apicheck"))
		m.viper.AddConfigPath("/etc/apicheck")
	}

	m.viper.SetEnvPrefix("APICHECK")
	m.viper.AutomaticEnv()

	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	m.config = &Config{}
	if err := m.viper.Unmarshal(m.config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.applyEndpointDefaults()

	return m.validate()
}

func (m *Manager) setDefaults() {
	m.viper.SetDefault("settings.test_timeout", 10)
	m.viper.SetDefault("settings.test_concurrency", runner.DefaultWorkers)
	m.viper.SetDefault("settings.test_rounds", 1)
	m.viper.SetDefault("settings.stream", false)
	m.viper.SetDefault("log_path", defaultLogPath())
	m.viper.SetDefault("endpoints", []models.ApiConfig{})
}

func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "apicheck-logs.db"
	}
	return filepath.Join(home, ".config", "apicheck", "logs.db")
}

func (m *Manager) applyEndpointDefaults() {
	for i := range m.config.Endpoints {
		ep := &m.config.Endpoints[i]
		if ep.ConnectionMode == "" {
			ep.ConnectionMode = models.ConnectionModeStandard
		}
		if ep.ID == "" {
			ep.ID = ep.Name
		}
		if !ep.Capabilities.Chat && !ep.Capabilities.Models {
			ep.Capabilities = models.Capabilities{Chat: true, Models: true}
		}
	}
}

func (m *Manager) validate() error {
	for i, ep := range m.config.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("endpoint %d: name is required", i)
		}
		switch ep.ConnectionMode {
		case models.ConnectionModeStandard:
			if ep.BaseURL == "" {
				return fmt.Errorf("endpoint %s: base_url is required in standard mode", ep.Name)
			}
		case models.ConnectionModeCustom:
			if ep.ModelsEndpoint == "" && ep.ChatEndpoint == "" {
				return fmt.Errorf("endpoint %s: custom mode requires explicit endpoint URLs", ep.Name)
			}
		default:
			return fmt.Errorf("endpoint %s: unknown connection mode %q", ep.Name, ep.ConnectionMode)
		}
	}

	s := m.config.Settings
	if s.TestTimeout <= 0 {
		return fmt.Errorf("settings.test_timeout must be greater than 0")
	}
	if s.TestConcurrency <= 0 || s.TestConcurrency > runner.MaxWorkers {
		return fmt.Errorf("settings.test_concurrency must be in 1..%d", runner.MaxWorkers)
	}
	if s.TestRounds < 1 {
		return fmt.Errorf("settings.test_rounds must be at least 1")
	}

	return nil
}

// GetConfig returns the loaded configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetEndpoints returns the configured endpoints.
func (m *Manager) GetEndpoints() []models.ApiConfig {
	if m.config == nil {
		return []models.ApiConfig{}
	}
	return m.config.Endpoints
}

// FindEndpoint looks an endpoint up by id or name.
func (m *Manager) FindEndpoint(nameOrID string) (*models.ApiConfig, error) {
	for i := range m.GetEndpoints() {
		ep := &m.config.Endpoints[i]
		if ep.ID == nameOrID || ep.Name == nameOrID {
			return ep, nil
		}
	}
	return nil, fmt.Errorf("no endpoint named %q in configuration", nameOrID)
}

// GetSettings returns the global probe settings.
func (m *Manager) GetSettings() models.GlobalSettings {
	if m.config == nil {
		return models.GlobalSettings{}
	}
	return m.config.Settings
}

// LogPath returns the audit log database path.
func (m *Manager) LogPath() string {
	if m.config == nil || m.config.LogPath == "" {
		return defaultLogPath()
	}
	return m.config.LogPath
}

// CreateSampleConfig creates a sample configuration file.
func (m *Manager) CreateSampleConfig(path string) error {
	yamlContent := `endpoints:
  - name: openai
    base_url: https://api.openai.com
    api_key: your-openai-api-key
    models:
      - gpt-4o-mini
  - name: custom-gateway
    connection_mode: custom
    models_endpoint: https://gateway.example.com/openai/models
    chat_endpoint: https://gateway.example.com/openai/chat
    api_key: your-gateway-key
    capabilities:
      chat: true
      models: true

settings:
  test_timeout: 10
  test_concurrency: 50
  test_rounds: 1
  stream: false

# assistant:
#   base_url: https://api.openai.com/v1
#   api_key: your-openai-api-key
#   model: gpt-4o-mini
`

	return os.WriteFile(path, []byte(yamlContent), 0644)
}

// MaskAPIKey shortens a credential for display.
func MaskAPIKey(apiKey string) string {
	trimmed := strings.TrimSpace(apiKey)
	if len(trimmed) <= 8 {
		return "***"
	}
	return trimmed[:4] + "..." + trimmed[len(trimmed)-4:]
}
