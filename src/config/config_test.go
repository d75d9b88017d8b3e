package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "config.json", `{
		"data_dir": "/data",
		"primary": "p.csv",
		"log_level": "debug",
		"email": {"server": "imap.example.com:993", "check_interval": "2h"}
	}`)
	writeJSON(t, dir, "dataconfig.json", `{
		"columns": {"carrier": "AIRLINE"},
		"dataset_month": 2
	}`)

	cfg, dcfg, err := LoadConfig(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)

	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, filepath.Join("/data", "p.csv"), cfg.PrimaryPath())
	assert.Equal(t, filepath.Join("/data", "Airline_dataset.csv"), cfg.SecondaryPath())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "app.log", cfg.LogName)
	assert.Equal(t, Duration(2*time.Hour), cfg.Email.CheckInterval)
	assert.Equal(t, "flight dataset", cfg.Email.TargetSubject)

	assert.Equal(t, "AIRLINE", dcfg.Columns.Carrier)
	assert.Equal(t, "ORIGIN", dcfg.Columns.Origin)
	assert.Equal(t, 2, dcfg.DatasetMonth)
	assert.Equal(t, 2020, dcfg.DatasetYear)
}

func TestLoadConfigMissingDataConfigUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "config.json", `{}`)

	cfg, dcfg, err := LoadConfig(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)
	assert.Equal(t, DefaultCheckInterval, cfg.Email.CheckInterval)
	assert.Equal(t, DefaultColumns(), dcfg.Columns)
	assert.Equal(t, 1, dcfg.DatasetMonth)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name       string
		config     string
		dataConfig string
	}{
		{name: "malformed config", config: `{`, dataConfig: `{}`},
		{name: "invalid charset", config: `{"charset": "ebcdic"}`, dataConfig: `{}`},
		{name: "invalid month", config: `{}`, dataConfig: `{"dataset_month": 13}`},
		{name: "bad duration", config: `{"email": {"check_interval": "soon"}}`, dataConfig: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeJSON(t, dir, "config.json", tt.config)
			writeJSON(t, dir, "dataconfig.json", tt.dataConfig)

			_, _, err := LoadConfig(dir, "config.json", "dataconfig.json")
			require.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, _, err := LoadConfig(t.TempDir(), "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDurationJSON(t *testing.T) {
	d := Duration(90 * time.Second)
	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))

	var back Duration
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, d, back)
}

func TestRequiredColumns(t *testing.T) {
	cols := DefaultColumns()
	assert.Len(t, cols.PrimaryRequired(), 10)
	assert.Contains(t, cols.PrimaryRequired(), "OP_CARRIER_AIRLINE_ID")
	assert.Equal(t, []string{"ORIGIN_AIRPORT", "DEST_AIRPORT", "DEP_TIME", "ARR_TIME", "FL_DATE"}, cols.SecondaryRequired())
}
