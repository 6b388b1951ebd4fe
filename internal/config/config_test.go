package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/capacity-engine/generic"
)

func TestValidate_Default(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidate_ThresholdOrder(t *testing.T) {
	cfg := Default()
	cfg.Thresholds = ThresholdConfig{Green: 0.9, Amber: 0.8}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_StoreNeedsDSN(t *testing.T) {
	cfg := Default()
	cfg.Store = StoreConfig{Driver: "sqlite"}
	assert.Error(t, Validate(cfg))

	cfg.Store.DSN = "capacity.db"
	assert.NoError(t, Validate(cfg))

	cfg.Store = StoreConfig{Driver: "mysql", DSN: "x"}
	assert.Error(t, Validate(cfg))
}

func TestValidate_InvalidRRule(t *testing.T) {
	cfg := Default()
	cfg.Periods.RRule = "INVALID_RRULE_SYNTAX"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rrule")
}

func TestLoadFromPath_PartialFileKeepsDefaults(t *testing.T) {
	// GIVEN: A file that only sets the store and the green threshold
	path := filepath.Join(t.TempDir(), FileName)
	content := `
store:
  driver: sqlite
  dsn: ./capacity.db
thresholds:
  green: 0.70
periods:
  autoSnapshot: true
  checkInterval: 15m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	// WHEN: Loading it
	cfg, err := LoadFromPath(path)

	// THEN: Unset keys fall back to the defaults
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 0.70, cfg.Thresholds.Green)
	assert.Equal(t, 0.85, cfg.Thresholds.Amber)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Periods.AutoSnapshot)
	assert.Equal(t, 15*time.Minute, cfg.Periods.CheckInterval)
	assert.Equal(t, generic.DefaultPeriodRule, cfg.Periods.RRule)

	settings := cfg.Settings()
	assert.True(t, generic.MustValue("0.7").Equal(settings.Thresholds.Green))
	assert.True(t, generic.MustValue("0.3").Equal(settings.FallbackBufferFTE))
}

func TestLoadFromPath_Errors(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))
	_, err = LoadFromPath(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestCalendar(t *testing.T) {
	cal, err := Default().Calendar()
	require.NoError(t, err)

	next, err := cal.NextLabel("2025 Q4")
	require.NoError(t, err)
	assert.Equal(t, "2026 Q1", next)
}
