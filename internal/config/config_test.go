package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Acme Traders Pvt Ltd", "Company")
	cfg.Entity.FinancialYear = "2024-25"
	cfg.Suggestions.Classifier = "command"
	cfg.Suggestions.Command = []string{"python3", "suggest.py"}
	cfg.Suggestions.Token = "secret"

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Acme Traders Pvt Ltd", got.Entity.Name)
	assert.Equal(t, "Company", got.Entity.EntityType)
	assert.Equal(t, "2024-25", got.Entity.FinancialYear)
	assert.Equal(t, []string{"python3", "suggest.py"}, got.Suggestions.Command)
	assert.Equal(t, 25, got.Suggestions.BatchSize)
	assert.InDelta(t, 1.0, got.Validation.BalanceTolerance, 0.001)
	assert.Empty(t, got.Suggestions.Token, "the token is never persisted")
	require.NoError(t, got.Validate())
}

func TestDefaults(t *testing.T) {
	cfg := Default("My LLP", "LLP")

	assert.Equal(t, "My LLP", cfg.Entity.Name)
	assert.Equal(t, "Indian", cfg.Entity.NumberFormat)
	assert.Equal(t, 2, cfg.Entity.DecimalPlaces)
	assert.Equal(t, 25, cfg.Suggestions.BatchSize)
	assert.Equal(t, 2, cfg.Suggestions.Concurrency)
	assert.Equal(t, "keyword", cfg.Suggestions.Classifier)
	assert.False(t, cfg.Suggestions.Overwrite)
	assert.Equal(t, "Critical", cfg.Validation.UnmappedSeverity)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Git.AutoCommit)
	assert.Equal(t, "tbmap", cfg.Git.AuthorName)
	require.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("entity:\n  name: Partial\n  entity_type: Non-Corporate\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Non-Corporate", cfg.Entity.EntityType)
	assert.Equal(t, 25, cfg.Suggestions.BatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing name", func(c *Config) { c.Entity.Name = "" }},
		{"bad entity type", func(c *Config) { c.Entity.EntityType = "Trust" }},
		{"bad rounding unit", func(c *Config) { c.Entity.RoundingUnit = "billions" }},
		{"zero batch size", func(c *Config) { c.Suggestions.BatchSize = 0 }},
		{"command without argv", func(c *Config) { c.Suggestions.Classifier = "command" }},
		{"bad severity", func(c *Config) { c.Validation.UnmappedSeverity = "Low" }},
		{"bad log format", func(c *Config) { c.Log.Format = "pretty" }},
		{"auto commit without author", func(c *Config) { c.Git.AutoCommit = true; c.Git.AuthorName = "" }},
		{"bad author email", func(c *Config) { c.Git.AuthorEmail = "nobody" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("Acme", "Company")
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TBMAP_LOG_FORMAT", "json")
	t.Setenv("TBMAP_CLASSIFIER_TOKEN", "tok-123")
	t.Setenv("TBMAP_BATCH_SIZE", "10")

	cfg := Default("Acme", "Company")
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "tok-123", cfg.Suggestions.Token)
	assert.Equal(t, 10, cfg.Suggestions.BatchSize)
	assert.Equal(t, 2, cfg.Suggestions.Concurrency, "unset variables leave the file value")

	t.Setenv("TBMAP_BATCH_SIZE", "many")
	assert.Error(t, ApplyEnv(cfg))
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Test Biz", "Company")
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Biz")
	assert.Contains(t, contents, "entity_type: Company")
	assert.Contains(t, contents, "batch_size: 25")
	assert.Contains(t, contents, "unmapped_severity: Critical")
	assert.NotContains(t, contents, "token")
}
