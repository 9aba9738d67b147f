package hcl

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/agflows/esr-dashboard/pkg/esr"
)

// Config is the root of the commodity configuration
type Config struct {
	Defaults    *Defaults   `hcl:"defaults,block"`
	Commodities []Commodity `hcl:"commodity,block"`
}

// Defaults holds settings shared by every commodity unless overridden
type Defaults struct {
	LookbackYears *int `hcl:"lookback_years,optional"`
	StartYear     *int `hcl:"start_year,optional"`
}

// Commodity is one commodity block: its ESR/PSD identifiers, fiscal calendar
// and display settings.
type Commodity struct {
	Name             string  `hcl:"name,label"`
	Code             int     `hcl:"code"`
	PSDCode          *int    `hcl:"psd_code,optional"`
	FiscalStartMonth int     `hcl:"fiscal_start_month"`
	FiscalStartDay   *int    `hcl:"fiscal_start_day,optional"`
	Unit             *string `hcl:"unit,optional"`
	LookbackYears    *int    `hcl:"lookback_years,optional"`
}

// ParseConfig parses commodity configuration from HCL content
func ParseConfig(content []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}

	// Evaluation context with the month helper, so calendars can be written
	// as fiscal_start_month = month("Aug") instead of a bare number
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"month": function.New(&function.Spec{
				Params: []function.Parameter{
					{Name: "name", Type: cty.String},
				},
				Type: function.StaticReturnType(cty.Number),
				Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
					name := args[0].AsString()
					for m := time.January; m <= time.December; m++ {
						if m.String() == name || m.String()[:3] == name {
							return cty.NumberIntVal(int64(m)), nil
						}
					}
					return cty.NilVal, fmt.Errorf("unknown month %q", name)
				},
			}),
		},
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, evalCtx, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL body: %s", diags.Error())
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads and parses a commodity configuration file
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(content, path)
}

// LoadConfigFiles combines multiple HCL files into one configuration, the way
// Terraform loads a directory of .tf files.
func LoadConfigFiles(paths []string) (*Config, error) {
	var merged bytes.Buffer
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		merged.Write(content)
		merged.WriteString("\n")
	}
	return ParseConfig(merged.Bytes(), "merged.hcl")
}

func (c *Config) validate() error {
	if len(c.Commodities) == 0 {
		return fmt.Errorf("no commodity blocks configured")
	}

	seen := make(map[string]bool)
	for _, commodity := range c.Commodities {
		if seen[commodity.Name] {
			return fmt.Errorf("duplicate commodity block %q", commodity.Name)
		}
		seen[commodity.Name] = true

		if _, err := commodity.Calendar(); err != nil {
			return fmt.Errorf("commodity %q: %w", commodity.Name, err)
		}
	}
	return nil
}

// Commodity looks up a commodity block by name
func (c *Config) Commodity(name string) (Commodity, bool) {
	for _, commodity := range c.Commodities {
		if commodity.Name == name {
			return commodity, true
		}
	}
	return Commodity{}, false
}

// Names lists the configured commodity names in declaration order
func (c *Config) Names() []string {
	names := make([]string, len(c.Commodities))
	for i, commodity := range c.Commodities {
		names[i] = commodity.Name
	}
	return names
}

// Lookback resolves the lookback years for a commodity: its own setting,
// then the defaults block, then the package default.
func (c *Config) Lookback(commodity Commodity) int {
	if commodity.LookbackYears != nil {
		return *commodity.LookbackYears
	}
	if c.Defaults != nil && c.Defaults.LookbackYears != nil {
		return *c.Defaults.LookbackYears
	}
	return esr.DefaultLookbackYears
}

// StartYear resolves the first marketing year to retrieve
func (c *Config) StartYear(fallback int) int {
	if c.Defaults != nil && c.Defaults.StartYear != nil {
		return *c.Defaults.StartYear
	}
	return fallback
}

// Calendar builds the validated fiscal calendar of a commodity
func (c Commodity) Calendar() (esr.FiscalCalendar, error) {
	day := 1
	if c.FiscalStartDay != nil {
		day = *c.FiscalStartDay
	}
	return esr.NewFiscalCalendar(time.Month(c.FiscalStartMonth), day)
}

// UnitLabel returns the display unit, empty when unset
func (c Commodity) UnitLabel() string {
	if c.Unit == nil {
		return ""
	}
	return *c.Unit
}
