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

package game

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/uptrace/bun/dialect"

	"github.com/tomoncle/gamedb/database"
)

// DefaultStartMap names the level-one map seeded in the dev environment.
const DefaultStartMap = "Greenfield Meadow"

//go:embed schema
var schemaFS embed.FS

// Schema returns the scripts for one dialect, laid out the way
// database.ScriptRunner expects: common/ plus environments/<env>/.
func Schema(name dialect.Name) (fs.FS, error) {
	var dir string
	switch name {
	case dialect.MySQL:
		dir = "schema/mysql"
	case dialect.PG:
		dir = "schema/pg"
	case dialect.SQLite:
		dir = "schema/sqlite"
	default:
		return nil, fmt.Errorf("game: no schema for dialect %s", name)
	}
	return fs.Sub(schemaFS, dir)
}

// ApplySchema creates the game tables on pool's database and loads the
// environment's fixtures. Scripts are idempotent and can be re-run.
func ApplySchema(ctx context.Context, pool *database.Pool, environment, startMap string) ([]database.ExecutionResult, error) {
	d := pool.Dialect()
	if d == nil {
		return nil, database.ErrNotConnected
	}
	fsys, err := Schema(d.Name())
	if err != nil {
		return nil, err
	}
	if startMap == "" {
		startMap = DefaultStartMap
	}
	runner := database.NewScriptRunner(pool, fsys, environment)
	runner.SetVar("START_MAP", startMap)
	return runner.Run(ctx)
}
