package runtimecfg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigOverridesSubset(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`tickInterval: 5ms`))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().AsyncRefcountTableSize, cfg.AsyncRefcountTableSize)
}

func TestLoadConfigRejectsBadTableSize(t *testing.T) {
	_, err := LoadConfig(strings.NewReader(`asyncRefcountTableSize: 3`))
	require.Error(t, err)
}

func TestLoadConfigEmptyDocument(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(``))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}
