package models

import "time"

// ConnectionMode selects how endpoint URLs are obtained for an ApiConfig.
type ConnectionMode string

const (
	// ConnectionModeStandard derives endpoint URLs from the base URL.
	ConnectionModeStandard ConnectionMode = "standard"
	// ConnectionModeCustom uses the stored endpoint URLs verbatim.
	ConnectionModeCustom ConnectionMode = "custom"
)

// Capabilities describes which API surfaces an endpoint supports.
// An endpoint may support either independently.
type Capabilities struct {
	Chat   bool `mapstructure:"chat" yaml:"chat" json:"chat"`
	Models bool `mapstructure:"models" yaml:"models" json:"models"`
}

// ApiConfig is the connection description for one OpenAI-compatible endpoint.
// It is created and edited by the configuration layer and is read-only to
// probe execution.
type ApiConfig struct {
	ID             string         `mapstructure:"id" yaml:"id" json:"id"`
	Name           string         `mapstructure:"name" yaml:"name" json:"name"`
	APIKey         string         `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	BaseURL        string         `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	ModelsEndpoint string         `mapstructure:"models_endpoint" yaml:"models_endpoint,omitempty" json:"models_endpoint,omitempty"`
	ChatEndpoint   string         `mapstructure:"chat_endpoint" yaml:"chat_endpoint,omitempty" json:"chat_endpoint,omitempty"`
	ConnectionMode ConnectionMode `mapstructure:"connection_mode" yaml:"connection_mode" json:"connection_mode"`
	Capabilities   Capabilities   `mapstructure:"capabilities" yaml:"capabilities" json:"capabilities"`

	// Headers are fixed HTTP headers sent with every request.
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty" json:"headers,omitempty"`
	// Params are fixed body parameters merged into every chat request.
	Params map[string]any `mapstructure:"params" yaml:"params,omitempty" json:"params,omitempty"`

	// AutoV1 controls whether a /v1 path segment is auto-appended in standard
	// mode. nil means unset, which behaves like true.
	AutoV1 *bool `mapstructure:"auto_v1" yaml:"auto_v1,omitempty" json:"auto_v1,omitempty"`
	// SkipAutoCompletion is kept for configs created before /v1 auto-detection
	// existed: the suffix is appended directly to the base URL.
	SkipAutoCompletion bool `mapstructure:"skip_auto_completion" yaml:"skip_auto_completion,omitempty" json:"skip_auto_completion,omitempty"`

	// Models is the list of model ids to test by default.
	Models []string `mapstructure:"models" yaml:"models,omitempty" json:"models,omitempty"`
}

// GlobalSettings holds the user-level probe settings. Read-only to the probe
// and scheduling layers.
type GlobalSettings struct {
	TestTimeout     int  `mapstructure:"test_timeout" yaml:"test_timeout" json:"test_timeout"` // seconds
	TestConcurrency int  `mapstructure:"test_concurrency" yaml:"test_concurrency" json:"test_concurrency"`
	TestRounds      int  `mapstructure:"test_rounds" yaml:"test_rounds" json:"test_rounds"`
	Stream          bool `mapstructure:"stream" yaml:"stream" json:"stream"`
}

// Timeout returns the per-probe timeout as a duration.
func (s GlobalSettings) Timeout() time.Duration {
	return time.Duration(s.TestTimeout) * time.Second
}
