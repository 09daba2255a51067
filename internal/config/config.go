// Package config loads the executor-profile configuration that decides
// which adapter serves as the primary agent. The file is YAML, validated
// against a JSON Schema before decoding so malformed profiles fail with a
// field-level message instead of a zero-value surprise.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/dmaloney/relay/internal/adapterspec"
)

// ExecutorProfile is one configured executor. Several profiles may share
// one adapter (e.g. two Claude profiles with different models); the profile
// name is the human-facing selection id in that case.
type ExecutorProfile struct {
	Name     string   `yaml:"name" json:"name"`
	Executor string   `yaml:"executor" json:"executor"`
	Role     string   `yaml:"role,omitempty" json:"role,omitempty"`
	Enabled  *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Models   []string `yaml:"models,omitempty" json:"models,omitempty"`
	Variant  string   `yaml:"variant,omitempty" json:"variant,omitempty"`
}

type Config struct {
	PrimaryAgent string            `yaml:"primary_agent,omitempty" json:"primary_agent,omitempty"`
	Executors    []ExecutorProfile `yaml:"executors,omitempty" json:"executors,omitempty"`
}

// Selection is the resolved startup choice: the adapter to activate and the
// human-facing selection id (profile name when profiles are configured).
type Selection struct {
	SelectionID string
	AdapterKey  string
	Model       string
}

const configSchema = `{
  "type": "object",
  "properties": {
    "primary_agent": {"type": "string"},
    "executors": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "executor"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "executor": {"type": "string", "minLength": 1},
          "role": {"type": "string"},
          "enabled": {"type": "boolean"},
          "models": {"type": "array", "items": {"type": "string"}},
          "variant": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// Load reads and validates the config file. A missing file is not an
// error: selection falls back to the head of the global fallback order.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if doc != nil {
		if err := validate(doc); err != nil {
			return Config{}, fmt.Errorf("invalid config: %w", err)
		}
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func validate(doc any) error {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("executors.json", strings.NewReader(configSchema)); err != nil {
		return err
	}
	schema, err := c.Compile("executors.json")
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}

// ResolvePrimary picks the startup selection: the profile with role
// "primary", else the first enabled profile, else the flat primary_agent
// string, else the head of the fixed fallback order. Profile executor
// fields map to adapter keys through the alias table; an executor that does
// not resolve to a known adapter is a configuration error, never a silent
// substitution.
func ResolvePrimary(cfg Config) (Selection, error) {
	profiles := enabledProfiles(cfg.Executors)
	if len(profiles) > 0 {
		chosen := profiles[0]
		for _, p := range profiles {
			if strings.EqualFold(strings.TrimSpace(p.Role), "primary") {
				chosen = p
				break
			}
		}
		key := adapterspec.CanonicalKey(chosen.Executor)
		if _, ok := adapterspec.Builtin(key); !ok {
			return Selection{}, fmt.Errorf("profile %q references unknown executor %q", chosen.Name, chosen.Executor)
		}
		sel := Selection{SelectionID: chosen.Name, AdapterKey: key}
		if len(chosen.Models) > 0 {
			sel.Model = chosen.Models[0]
		}
		return sel, nil
	}

	if strings.TrimSpace(cfg.PrimaryAgent) != "" {
		key := adapterspec.CanonicalKey(cfg.PrimaryAgent)
		if _, ok := adapterspec.Builtin(key); !ok {
			return Selection{}, fmt.Errorf("unknown primary agent %q", cfg.PrimaryAgent)
		}
		return Selection{SelectionID: key, AdapterKey: key}, nil
	}

	key := adapterspec.FallbackOrder()[0]
	return Selection{SelectionID: key, AdapterKey: key}, nil
}

func enabledProfiles(in []ExecutorProfile) []ExecutorProfile {
	out := make([]ExecutorProfile, 0, len(in))
	for _, p := range in {
		if p.Enabled != nil && !*p.Enabled {
			continue
		}
		out = append(out, p)
	}
	return out
}
