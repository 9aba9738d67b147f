package hcl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
defaults {
  lookback_years = 5
  start_year     = 2021
}

commodity "cotton" {
  code               = 1404
  psd_code           = 2631000
  fiscal_start_month = month("Aug")
  unit               = "Bales"
}

commodity "corn" {
  code               = 401
  fiscal_start_month = 9
  lookback_years     = 3
}

commodity "wheat" {
  code               = 107
  fiscal_start_month = 6
  fiscal_start_day   = 1
  unit               = "Metric Tons"
}
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig), "test.hcl")
	require.NoError(t, err)

	assert.Equal(t, []string{"cotton", "corn", "wheat"}, cfg.Names())

	cotton, ok := cfg.Commodity("cotton")
	require.True(t, ok)
	assert.Equal(t, 1404, cotton.Code)
	require.NotNil(t, cotton.PSDCode)
	assert.Equal(t, 2631000, *cotton.PSDCode)
	assert.Equal(t, "Bales", cotton.UnitLabel())

	cal, err := cotton.Calendar()
	require.NoError(t, err)
	assert.Equal(t, time.August, cal.StartMonth)
	assert.Equal(t, 1, cal.StartDay)

	corn, ok := cfg.Commodity("corn")
	require.True(t, ok)
	assert.Nil(t, corn.PSDCode)
	assert.Equal(t, "", corn.UnitLabel())
}

func TestConfigLookbackResolution(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig), "test.hcl")
	require.NoError(t, err)

	cotton, _ := cfg.Commodity("cotton")
	corn, _ := cfg.Commodity("corn")

	assert.Equal(t, 5, cfg.Lookback(cotton)) // from defaults block
	assert.Equal(t, 3, cfg.Lookback(corn))   // commodity override
	assert.Equal(t, 2021, cfg.StartYear(2020))
}

func TestConfigDefaultsOmitted(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
commodity "soybeans" {
  code               = 801
  fiscal_start_month = 9
}
`), "test.hcl")
	require.NoError(t, err)

	soy, ok := cfg.Commodity("soybeans")
	require.True(t, ok)
	assert.Equal(t, 5, cfg.Lookback(soy)) // package default
	assert.Equal(t, 2020, cfg.StartYear(2020))
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "empty config",
			content: ``,
		},
		{
			name: "invalid fiscal month",
			content: `
commodity "bad" {
  code               = 1
  fiscal_start_month = 13
}
`,
		},
		{
			name: "duplicate commodity",
			content: `
commodity "corn" {
  code               = 401
  fiscal_start_month = 9
}
commodity "corn" {
  code               = 401
  fiscal_start_month = 9
}
`,
		},
		{
			name:    "malformed HCL",
			content: `commodity "corn" {`,
		},
		{
			name: "unknown month name",
			content: `
commodity "corn" {
  code               = 401
  fiscal_start_month = month("Frimaire")
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.content), "test.hcl")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFiles(t *testing.T) {
	dir := t.TempDir()

	first := filepath.Join(dir, "defaults.hcl")
	require.NoError(t, os.WriteFile(first, []byte(`
defaults {
  lookback_years = 4
}
`), 0o644))

	second := filepath.Join(dir, "commodities.hcl")
	require.NoError(t, os.WriteFile(second, []byte(`
commodity "cotton" {
  code               = 1404
  fiscal_start_month = 8
}
`), 0o644))

	cfg, err := LoadConfigFiles([]string{first, second})
	require.NoError(t, err)

	cotton, ok := cfg.Commodity("cotton")
	require.True(t, ok)
	assert.Equal(t, 4, cfg.Lookback(cotton))
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	assert.Error(t, err)
}
