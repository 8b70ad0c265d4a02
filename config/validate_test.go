package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func TestValidateConfigurationPassesOnDefaults(t *testing.T) {
	issues := ValidateConfiguration(validConfig())
	for _, iss := range issues {
		assert.NotEqual(t, ValidationError, iss.Level, iss.Message)
	}
}

func TestValidateConfigurationRejectsUnknownStoreBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Backend = "sqlite"

	issues := ValidateConfiguration(cfg)
	assert.True(t, hasErrorField(issues, "store.backend"))
}

func TestValidateConfigurationRequiresDSNForPostgres(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Backend = "postgres"
	cfg.Store.DSN = ""

	issues := ValidateConfiguration(cfg)
	assert.True(t, hasErrorField(issues, "store.dsn"))
}

func TestValidateConfigurationRejectsEmptyGenesisPath(t *testing.T) {
	cfg := validConfig()
	cfg.Genesis.Path = ""

	issues := ValidateConfiguration(cfg)
	assert.True(t, hasErrorField(issues, "genesis.path"))
}

func TestValidateConfigurationWarnsOnUnknownLogVerbosity(t *testing.T) {
	cfg := validConfig()
	cfg.Safety.LogVerbosity = "chatty"

	issues := ValidateConfiguration(cfg)
	found := false
	for _, iss := range issues {
		if iss.Field == "safety.log_verbosity" {
			found = true
			assert.Equal(t, ValidationWarning, iss.Level)
		}
	}
	assert.True(t, found)
}

func TestValidateConfigurationRejectsClashingPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Enabled = true
	cfg.Health.Enabled = true
	cfg.Health.Port = cfg.Metrics.Port

	issues := ValidateConfiguration(cfg)
	assert.True(t, hasErrorField(issues, "metrics.port"))
}

func hasErrorField(issues []ValidationIssue, field string) bool {
	for _, iss := range issues {
		if iss.Field == field && iss.Level == ValidationError {
			return true
		}
	}
	return false
}
