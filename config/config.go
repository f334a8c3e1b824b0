/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the gamedb configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tomoncle/gamedb/database"
	"github.com/tomoncle/gamedb/hashid"
	"github.com/tomoncle/gamedb/types"
)

var ErrNoFamilies = errors.New("config: no id families configured")

type Config struct {
	Environment string `yaml:"environment" env:"GAMEDB_ENV" env-default:"dev" env-description:"script environment applied after common/"`

	Log      LogConfig                 `yaml:"log"`
	Database database.ConnectionConfig `yaml:"database"`

	Pagination types.LimitRange `yaml:"pagination"`

	// Families maps each id family to its salt. Entries from FamiliesFile
	// replace entries of the same family here.
	Families     map[hashid.Family]hashid.FamilyConfig `yaml:"families"`
	FamiliesFile string                                `yaml:"families_file" env:"GAMEDB_FAMILIES_FILE" env-description:"YAML file with per-family salts"`

	Metrics MetricsConfig `yaml:"metrics"`
	Schema  SchemaConfig  `yaml:"schema"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info" env-description:"trace, debug, info, warn or error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text" env-description:"text or json"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace" env:"GAMEDB_METRICS_NAMESPACE" env-default:"gamedb"`
	Listen    string `yaml:"listen" env:"GAMEDB_METRICS_LISTEN" env-default:":9464"`
}

type SchemaConfig struct {
	StartMap string `yaml:"start_map" env:"GAMEDB_START_MAP" env-description:"name of the seeded level one map"`
}

// Load reads path, or only the environment when path is empty, merges the
// families file and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.FamiliesFile != "" {
		file := cfg.FamiliesFile
		if path != "" && !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(path), file)
		}
		families, err := hashid.LoadFamilies(file)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if cfg.Families == nil {
			cfg.Families = make(map[hashid.Family]hashid.FamilyConfig, len(families))
		}
		for f, fc := range families {
			cfg.Families[f] = fc
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Families) == 0 {
		return ErrNoFamilies
	}
	for _, f := range c.FamilyNames() {
		if err := c.Families[f].Validate(); err != nil {
			return fmt.Errorf("config: family %s: %w", f, err)
		}
	}
	if err := c.Pagination.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := database.ValidateConnectionConfig(&c.Database); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// FamilyNames lists the configured families in a stable order.
func (c *Config) FamilyNames() []hashid.Family {
	out := make([]hashid.Family, 0, len(c.Families))
	for f := range c.Families {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Usage describes every environment variable Load reads.
func Usage() (string, error) {
	return cleanenv.GetDescription(&Config{}, nil)
}
