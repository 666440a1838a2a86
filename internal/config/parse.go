package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
)

// conditionalSection is one `[[conditional]]` table: an expr-lang boolean
// guarding a set of targets/packages to splice into the config.
type conditionalSection struct {
	When     string       `toml:"when"`
	Targets  []Target     `toml:"targets"`
	Packages []PackageRef `toml:"packages"`
}

type rawDocument struct {
	Conditional []map[string]any `toml:"conditional"`
}

// ParseConfigFromFile reads and validates the BuildConfig at path.
func ParseConfigFromFile(path string) (*BuildConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, buildapi.Config(path, err)
	}
	cfg, err := ParseConfig(data, filepath.Dir(path))
	if err != nil {
		return nil, buildapi.Config(path, err)
	}
	return cfg, nil
}

// ParseConfig parses raw TOML config text rooted at basedir (used to resolve
// relative patch-hook and source paths during macro evaluation).
func ParseConfig(data []byte, basedir string) (*BuildConfig, error) {
	env := NewConfigEnv(basedir)

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing toml: %w", err)
	}

	expanded, err := processExpressions(raw, env)
	if err != nil {
		return nil, fmt.Errorf("expanding macros: %w", err)
	}
	raw = expanded.(map[string]any)

	extraTargets, extraPackages, err := unmarshalConditionalSections(raw, env)
	if err != nil {
		return nil, err
	}
	delete(raw, "conditional")

	remarshaled, err := toml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encoding expanded config: %w", err)
	}

	var cfg BuildConfig
	if err := toml.Unmarshal(remarshaled, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.Targets = append(cfg.Targets, extraTargets...)
	cfg.Packages = append(cfg.Packages, extraPackages...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// unmarshalConditionalSections evaluates each `[[conditional]]` table's
// `when` guard and returns the targets/packages of the ones that hold.
func unmarshalConditionalSections(raw map[string]any, env *ConfigEnv) ([]Target, []PackageRef, error) {
	condAny, ok := raw["conditional"]
	if !ok {
		return nil, nil, nil
	}
	condList, ok := condAny.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("conditional section must be an array of tables")
	}

	var targets []Target
	var packages []PackageRef
	for i, entryAny := range condList {
		entryMap, ok := entryAny.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("conditional[%d]: not a table", i)
		}
		encoded, err := toml.Marshal(entryMap)
		if err != nil {
			return nil, nil, fmt.Errorf("conditional[%d]: %w", i, err)
		}
		var section conditionalSection
		if err := toml.Unmarshal(encoded, &section); err != nil {
			return nil, nil, fmt.Errorf("conditional[%d]: %w", i, err)
		}
		if section.When == "" {
			return nil, nil, fmt.Errorf("conditional[%d]: missing \"when\"", i)
		}
		hold, err := env.evaluateBool(section.When)
		if err != nil {
			return nil, nil, fmt.Errorf("conditional[%d]: %w", i, err)
		}
		if !hold {
			continue
		}
		targets = append(targets, section.Targets...)
		packages = append(packages, section.Packages...)
	}
	return targets, packages, nil
}
