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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/gamedb/hashid"
)

const sample = `
environment: test
log:
  level: debug
  format: json
database:
  type: sqlite3
  dbname: %s
  max_open_conns: 4
  max_idle_conns: 8
  statement_timeout: 3s
pagination:
  default: 25
  min: 5
  max: 50
families:
  character:
    salt: character-salt
    min_length: 8
  guild:
    salt: guild-salt
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gamedb.yaml", fmtSample(filepath.Join(dir, "game.db")))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 4, cfg.Database.MaxIdleConns)
	assert.Equal(t, 3*time.Second, cfg.Database.StatementTimeout)
	assert.Equal(t, 25, cfg.Pagination.Default)
	assert.Equal(t, 50, cfg.Pagination.Max)
	assert.Equal(t, "gamedb", cfg.Metrics.Namespace)
	assert.Equal(t, []hashid.Family{hashid.FamilyCharacter, hashid.FamilyGuild}, cfg.FamilyNames())
	assert.Equal(t, 8, cfg.Families[hashid.FamilyCharacter].MinLength)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gamedb.yaml", fmtSample(filepath.Join(dir, "game.db")))
	t.Setenv("DB_MAX_OPEN_CONNS", "2")
	t.Setenv("PAGE_LIMIT_MAX", "40")
	t.Setenv("GAMEDB_START_MAP", "Dawn Shore")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Database.MaxOpenConns)
	assert.Equal(t, 40, cfg.Pagination.Max)
	assert.Equal(t, "Dawn Shore", cfg.Schema.StartMap)
}

func TestFamiliesFileReplacesEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, hashid.ExportFamilies(filepath.Join(dir, "secrets", "families.yaml"), map[hashid.Family]hashid.FamilyConfig{
		hashid.FamilyGuild: {Salt: "rotated-guild-salt", MinLength: 10},
		hashid.FamilyMap:   {Salt: "map-salt"},
	}))
	content := fmtSample(filepath.Join(dir, "game.db")) + "families_file: secrets/families.yaml\n"
	path := writeFile(t, dir, "gamedb.yaml", content)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Families, 3)
	assert.Equal(t, "rotated-guild-salt", cfg.Families[hashid.FamilyGuild].Salt)
	assert.Equal(t, "character-salt", cfg.Families[hashid.FamilyCharacter].Salt)

	path = writeFile(t, dir, "missing.yaml", fmtSample(filepath.Join(dir, "game.db"))+"families_file: nope.yaml\n")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "game.db")
	cases := map[string]string{
		"empty salt": `
database: {type: sqlite, dbname: ` + db + `}
families:
  character: {salt: "  "}
`,
		"no families": `
database: {type: sqlite, dbname: ` + db + `}
`,
		"default above max": `
database: {type: sqlite, dbname: ` + db + `}
pagination: {default: 200, min: 1, max: 100}
families:
  character: {salt: s}
`,
		"unknown driver": `
database: {type: oracle, dbname: x}
families:
  character: {salt: s}
`,
		"mysql without dbname": `
database: {type: mysql, host: db.local}
families:
  character: {salt: s}
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.yaml", content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestUsageListsVariables(t *testing.T) {
	usage, err := Usage()
	require.NoError(t, err)
	for _, env := range []string{"GAMEDB_ENV", "DB_HOST", "PAGE_LIMIT_DEFAULT", "LOG_FORMAT"} {
		assert.Contains(t, usage, env)
	}
}

func fmtSample(db string) string {
	return strings.Replace(sample, "%s", db, 1)
}
