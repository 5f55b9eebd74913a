package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssrsss/API-Check/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apicheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  - name: openai
    base_url: https://api.openai.com
    api_key: sk-test
`)

	mgr := NewManager()
	require.NoError(t, mgr.Load(path))

	eps := mgr.GetEndpoints()
	require.Len(t, eps, 1)
	assert.Equal(t, models.ConnectionModeStandard, eps[0].ConnectionMode)
	assert.Equal(t, "openai", eps[0].ID)
	assert.True(t, eps[0].Capabilities.Chat)
	assert.True(t, eps[0].Capabilities.Models)

	s := mgr.GetSettings()
	assert.Equal(t, 10, s.TestTimeout)
	assert.Equal(t, 50, s.TestConcurrency)
	assert.Equal(t, 1, s.TestRounds)
	assert.False(t, s.Stream)
}

func TestLoadCustomMode(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  - name: gateway
    connection_mode: custom
    models_endpoint: https://gw.example.com/models
    api_key: key
`)

	mgr := NewManager()
	require.NoError(t, mgr.Load(path))

	ep, err := mgr.FindEndpoint("gateway")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionModeCustom, ep.ConnectionMode)
	assert.Equal(t, "https://gw.example.com/models", ep.ModelsEndpoint)
}

func TestLoadRejectsCustomModeWithoutURLs(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  - name: broken
    connection_mode: custom
    api_key: key
`)

	mgr := NewManager()
	err := mgr.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom mode")
}

func TestLoadRejectsStandardModeWithoutBaseURL(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  - name: broken
    api_key: key
`)

	mgr := NewManager()
	require.Error(t, mgr.Load(path))
}

func TestLoadRejectsBadSettings(t *testing.T) {
	path := writeConfig(t, `
settings:
  test_concurrency: 500
`)

	mgr := NewManager()
	err := mgr.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test_concurrency")
}

func TestFindEndpointByIDOrName(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  - name: primary
    id: ep-1
    base_url: https://one.example.com
  - name: secondary
    base_url: https://two.example.com
`)

	mgr := NewManager()
	require.NoError(t, mgr.Load(path))

	byID, err := mgr.FindEndpoint("ep-1")
	require.NoError(t, err)
	assert.Equal(t, "primary", byID.Name)

	byName, err := mgr.FindEndpoint("secondary")
	require.NoError(t, err)
	assert.Equal(t, "secondary", byName.ID)

	_, err = mgr.FindEndpoint("missing")
	require.Error(t, err)
}

func TestCreateSampleConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.yaml")

	mgr := NewManager()
	require.NoError(t, mgr.CreateSampleConfig(path))

	loaded := NewManager()
	require.NoError(t, loaded.Load(path))
	assert.Len(t, loaded.GetEndpoints(), 2)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "***", MaskAPIKey(""))
	assert.Equal(t, "***", MaskAPIKey("short"))
	assert.Equal(t, "sk-1...wxyz", MaskAPIKey("sk-1234567890wxyz"))
}
