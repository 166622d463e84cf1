package config

import (
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// SymbolOverride tunes a single instrument away from the global defaults.
type SymbolOverride struct {
	MaxLeverage   int     `yaml:"max_leverage"`
	CollateralUSD float64 `yaml:"collateral_usd"`
}

type overridesFile struct {
	Symbols map[string]SymbolOverride `yaml:"symbols"`
}

// LoadOverrides reads the optional per-symbol overrides file. A missing
// path (empty OverridesFile) yields an empty map, not an error.
func LoadOverrides(path string) (map[string]SymbolOverride, error) {
	if path == "" {
		return map[string]SymbolOverride{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read overrides %s", path)
	}
	var f overridesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrapf(err, "parse overrides %s", path)
	}
	if f.Symbols == nil {
		f.Symbols = map[string]SymbolOverride{}
	}
	return f.Symbols, nil
}
