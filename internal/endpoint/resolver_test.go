package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ssrsss/API-Check/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestResolveStandardMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.ApiConfig
		kind Kind
		want string
	}{
		{
			name: "default appends v1 and chat suffix",
			cfg:  models.ApiConfig{BaseURL: "https://api.example.com"},
			kind: KindChat,
			want: "https://api.example.com/v1/chat/completions",
		},
		{
			name: "default appends v1 and models suffix",
			cfg:  models.ApiConfig{BaseURL: "https://api.example.com"},
			kind: KindModels,
			want: "https://api.example.com/v1/models",
		},
		{
			name: "base ending in v1 is not duplicated",
			cfg:  models.ApiConfig{BaseURL: "https://api.example.com/v1"},
			kind: KindChat,
			want: "https://api.example.com/v1/chat/completions",
		},
		{
			name: "trailing slash is trimmed",
			cfg:  models.ApiConfig{BaseURL: "https://api.example.com/"},
			kind: KindModels,
			want: "https://api.example.com/v1/models",
		},
		{
			name: "auto_v1 true behaves like unset",
			cfg:  models.ApiConfig{BaseURL: "https://api.example.com", AutoV1: boolPtr(true)},
			kind: KindChat,
			want: "https://api.example.com/v1/chat/completions",
		},
		{
			name: "auto_v1 false returns base unchanged for chat",
			cfg:  models.ApiConfig{BaseURL: "https://api.example.com", AutoV1: boolPtr(false)},
			kind: KindChat,
			want: "https://api.example.com",
		},
		{
			name: "auto_v1 false returns base unchanged for models",
			cfg:  models.ApiConfig{BaseURL: "https://api.example.com/custom/path", AutoV1: boolPtr(false)},
			kind: KindModels,
			want: "https://api.example.com/custom/path",
		},
		{
			name: "skip_auto_completion appends suffix without v1",
			cfg:  models.ApiConfig{BaseURL: "https://api.example.com", SkipAutoCompletion: true},
			kind: KindChat,
			want: "https://api.example.com/chat/completions",
		},
		{
			name: "skip_auto_completion wins over auto_v1",
			cfg:  models.ApiConfig{BaseURL: "https://api.example.com", SkipAutoCompletion: true, AutoV1: boolPtr(false)},
			kind: KindModels,
			want: "https://api.example.com/models",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(&tt.cfg, tt.kind))
		})
	}
}

func TestResolveCustomMode(t *testing.T) {
	cfg := models.ApiConfig{
		ConnectionMode: models.ConnectionModeCustom,
		BaseURL:        "https://ignored.example.com",
		ModelsEndpoint: "https://models.example.com/list",
		ChatEndpoint:   "https://chat.example.com/complete",
		AutoV1:         boolPtr(true),
	}

	// Stored endpoints are used verbatim, /v1 logic never applies.
	assert.Equal(t, "https://models.example.com/list", Resolve(&cfg, KindModels))
	assert.Equal(t, "https://chat.example.com/complete", Resolve(&cfg, KindChat))
}

func TestResolveCustomModeUnsetEndpoint(t *testing.T) {
	cfg := models.ApiConfig{ConnectionMode: models.ConnectionModeCustom, ChatEndpoint: "https://chat.example.com"}

	// Missing endpoint resolves to empty: the caller treats it as a
	// configuration error.
	assert.Equal(t, "", Resolve(&cfg, KindModels))
}
