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

package hashid

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FamiliesFile is the YAML layout of a standalone families file:
//
//	families:
//	  character:
//	    salt: "..."
//	    min_length: 8
type FamiliesFile struct {
	Families map[Family]FamilyConfig `yaml:"families"`
}

// LoadFamilies reads family settings from a YAML file.
func LoadFamilies(path string) (map[Family]FamilyConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("families file does not exist: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read families file: %w", err)
	}
	var file FamiliesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse families file: %w", err)
	}
	if len(file.Families) == 0 {
		return nil, fmt.Errorf("families file %s defines no families", path)
	}
	return file.Families, nil
}

// ExportFamilies writes family settings to path, creating directories as
// needed.
func ExportFamilies(path string, families map[Family]FamilyConfig) error {
	data, err := yaml.Marshal(&FamiliesFile{Families: families})
	if err != nil {
		return fmt.Errorf("failed to serialize families: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
