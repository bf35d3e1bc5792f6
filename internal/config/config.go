// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	ProgramID           string `mapstructure:"program_id"`
	FeeBasisPoints      uint32 `mapstructure:"fee_bps"`
	MigrationThreshold  uint64 `mapstructure:"migration_threshold"`
	TotalSupply         uint64 `mapstructure:"total_supply"`
	InitialVirtualSol   uint64 `mapstructure:"initial_virtual_sol"`
	InitialVirtualToken uint64 `mapstructure:"initial_virtual_token"`
	JournalPath         string `mapstructure:"journal_path"`
	SubmitRetryMs       int    `mapstructure:"submit_retry_ms"`
	DebugLogging        bool   `mapstructure:"debug_logging"`
	LogFile             string `mapstructure:"log_file"`
}

const (
	DefaultFeeBasisPoints      = 100
	DefaultMigrationThreshold  = 793_100_000_000_000
	DefaultTotalSupply         = 1_000_000_000_000_000
	DefaultInitialVirtualSol   = 30_000_000_000
	DefaultInitialVirtualToken = 1_073_000_000_000_000
	DefaultJournalPath         = "launchpad.db"
	DefaultSubmitRetryMs       = 2000
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"fee_bps":               DefaultFeeBasisPoints,
		"migration_threshold":   DefaultMigrationThreshold,
		"total_supply":          DefaultTotalSupply,
		"initial_virtual_sol":   DefaultInitialVirtualSol,
		"initial_virtual_token": DefaultInitialVirtualToken,
		"journal_path":          DefaultJournalPath,
		"submit_retry_ms":       DefaultSubmitRetryMs,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.ProgramID == "" {
		return errors.New("missing program_id in configuration")
	}
	if cfg.FeeBasisPoints >= 10_000 {
		return errors.New("fee_bps must be below 10000")
	}
	if cfg.MigrationThreshold == 0 {
		return errors.New("invalid migration_threshold")
	}
	if cfg.TotalSupply == 0 {
		return errors.New("invalid total_supply")
	}
	if cfg.InitialVirtualSol == 0 || cfg.InitialVirtualToken == 0 {
		return errors.New("invalid virtual reserve seeds")
	}
	if cfg.SubmitRetryMs <= 0 {
		return errors.New("invalid submit_retry_ms")
	}
	return nil
}
