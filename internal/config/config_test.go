package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launchpad.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{"program_id": "2zP1cXE8o6dBDuNwfxoHgydP7ufn5sBibShiuv86RJ5b"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(DefaultFeeBasisPoints), cfg.FeeBasisPoints)
	assert.Equal(t, uint64(DefaultMigrationThreshold), cfg.MigrationThreshold)
	assert.Equal(t, uint64(DefaultTotalSupply), cfg.TotalSupply)
	assert.Equal(t, uint64(DefaultInitialVirtualSol), cfg.InitialVirtualSol)
	assert.Equal(t, uint64(DefaultInitialVirtualToken), cfg.InitialVirtualToken)
	assert.Equal(t, DefaultJournalPath, cfg.JournalPath)
	assert.Equal(t, DefaultSubmitRetryMs, cfg.SubmitRetryMs)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"program_id": "2zP1cXE8o6dBDuNwfxoHgydP7ufn5sBibShiuv86RJ5b",
		"fee_bps": 250,
		"migration_threshold": 1000,
		"journal_path": "custom.db"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(250), cfg.FeeBasisPoints)
	assert.Equal(t, uint64(1000), cfg.MigrationThreshold)
	assert.Equal(t, "custom.db", cfg.JournalPath)
}

func TestLoadConfigMissingProgramID(t *testing.T) {
	path := writeConfig(t, `{"fee_bps": 100}`)

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "program_id")
}

func TestLoadConfigRejectsFeeAtDenominator(t *testing.T) {
	path := writeConfig(t, `{
		"program_id": "2zP1cXE8o6dBDuNwfxoHgydP7ufn5sBibShiuv86RJ5b",
		"fee_bps": 10000
	}`)

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "fee_bps")
}

func TestLoadConfigRejectsZeroSupply(t *testing.T) {
	path := writeConfig(t, `{
		"program_id": "2zP1cXE8o6dBDuNwfxoHgydP7ufn5sBibShiuv86RJ5b",
		"total_supply": 0
	}`)

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "total_supply")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
