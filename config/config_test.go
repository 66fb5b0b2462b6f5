package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	for key, value := range map[string]string{
		"PG_HOST":               "localhost",
		"PG_PORT":               "5432",
		"PG_DB_NAME":            "vault",
		"PG_PASSWORD":           "pass",
		"PG_USER":               "vault",
		"REDIS_HOST":            "localhost",
		"REDIS_PORT":            "6379",
		"COINMARKETCAP_API_KEY": "cmc",
		"API_NINJAS_KEY":        "ninjas",
		"TOKEN_SECRET":          "secret",
		"SUPER_ADMIN_EMAIL":     "admin@vault.io",
		"SUPER_ADMIN_PASS":      "pass",
	} {
		t.Setenv(key, value)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Jobs.TickInterval)
	assert.Equal(t, 5*time.Second, cfg.Jobs.TickStartDelay)
	assert.Equal(t, "482216.56", cfg.Valuation.InitialNav.String())
	require.Len(t, cfg.Valuation.Allocations, 3)
	assert.Equal(t, "1", cfg.Valuation.Allocations.TotalWeight().String())
	assert.Equal(t, 3, cfg.Persist.MaxAttempts)
	assert.Equal(t, "1440", cfg.TickElapsedFraction().String())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("TICK_JOB_INTERVAL", "1h")
	t.Setenv("VALUATION_ALLOCATIONS", "A|Bitcoin Allocation|0.5|BTC;B|Ethereum Allocation|0.3|ETH;C|Stablecoin Allocation|0.2|STABLE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "24", cfg.TickElapsedFraction().String())
	assert.Equal(t, "0.3", cfg.Valuation.Allocations[1].Weight.String())

	t.Setenv("VALUATION_ELAPSED_FRACTION", "1")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.TickElapsedFraction().String())
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("TOKEN_SECRET"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidAllocations(t *testing.T) {
	setRequired(t)
	t.Setenv("VALUATION_ALLOCATIONS", "A|Bitcoin|0.5|DOGE")

	_, err := Load()
	assert.Error(t, err)
}
