package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())

	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("UJENZI_ENVIRONMENT", "production")

	cfg, err := LoadConfig(t.TempDir())

	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
}

func TestFormatIndex(t *testing.T) {
	cfg := ElasticConfig{Prefix: "ujenzipro"}
	require.Equal(t, "ujenzipro-deliveries", FormatIndex(cfg, "deliveries"))
}
