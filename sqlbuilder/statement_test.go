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

package sqlbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/tomoncle/gamedb/types"
)

func TestSelectDefaults(t *testing.T) {
	sql, args, err := mysqlBuilder().Select(SelectStmt{Table: "player"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `player` WHERE 1=1 ORDER BY 1 ASC", sql)
	assert.Empty(t, args)
}

func TestSelectFull(t *testing.T) {
	sql, args, err := mysqlBuilder().Select(SelectStmt{
		Table:   "player",
		Columns: []types.Fragment{types.SQL("player.id"), types.SQL("guild.name AS guild_name")},
		Joins:   []types.Fragment{types.SQL("LEFT JOIN guild ON guild.id = player.guild_id")},
		Filter: types.Filter{
			"player.level": types.Gte(90),
			"player.class": "mage",
		},
		Where:  []types.Expr{types.Where(types.SQL("player.deleted_at IS NULL"))},
		Group:  []types.Fragment{types.SQL("player.id")},
		Having: []types.Expr{types.Where(types.SQL("COUNT(*) > ?"), 1)},
		Order:  []types.OrderBy{types.Asc("player.id"), types.Desc("player.level")},
		Limit:  2,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT player.id, guild.name AS guild_name FROM `player` LEFT JOIN guild ON guild.id = player.guild_id "+
			"WHERE (`player`.`class` = ? AND `player`.`level` >= ? AND player.deleted_at IS NULL) "+
			"GROUP BY player.id HAVING COUNT(*) > ? ORDER BY `player`.`id` ASC, `player`.`level` DESC LIMIT 2",
		sql)
	assert.Equal(t, []any{"mage", 90, 1}, args)
}

func TestSelectJoinedTableWithKeyColumns(t *testing.T) {
	sql, _, err := mysqlBuilder().Select(SelectStmt{
		Table:      "player",
		Joins:      []types.Fragment{types.SQL("LEFT JOIN guild ON guild.id = player.guild_id")},
		KeyColumns: []string{"player.level", "player.id"},
		Order:      []types.OrderBy{types.Asc("player.level"), types.Asc("player.id")},
		Limit:      2,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT `player`.*, `player`.`level` AS `gamedb_key_0`, `player`.`id` AS `gamedb_key_1` "+
			"FROM `player` LEFT JOIN guild ON guild.id = player.guild_id WHERE 1=1 "+
			"ORDER BY `player`.`level` ASC, `player`.`id` ASC LIMIT 2",
		sql)
}

func TestSelectIsDeterministic(t *testing.T) {
	stmt := SelectStmt{
		Table: "player",
		Filter: types.Filter{
			"player.a": 1, "player.b": 2, "player.c": 3, "player.d": 4,
		},
	}
	first, _, err := mysqlBuilder().Select(stmt)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, _, err := mysqlBuilder().Select(stmt)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSelectUnknownOperatorAborts(t *testing.T) {
	_, _, err := mysqlBuilder().Select(SelectStmt{
		Table:  "player",
		Filter: types.Filter{"player.id": types.ColumnFilter{Op: "approximately", Operand: 3}},
	})
	var unknown *UnknownFilterOperatorError
	assert.ErrorAs(t, err, &unknown)
}

func TestSelectKeyset(t *testing.T) {
	b := New(sqlitedialect.New())

	sql, args, err := b.Select(SelectStmt{
		Table: "player",
		After: &Keyset{Columns: []string{"player.id"}, Values: []any{int64(2)}},
		Order: []types.OrderBy{types.Asc("player.id")},
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "player" WHERE ("player"."id" > ?) ORDER BY "player"."id" ASC LIMIT 2`, sql)
	assert.Equal(t, []any{int64(2)}, args)

	sql, args, err = b.Select(SelectStmt{
		Table: "player",
		After: &Keyset{Columns: []string{"level", "id"}, Values: []any{int64(90), int64(7)}, Desc: true},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, `(("level" < ?) OR ("level" = ? AND "id" < ?))`)
	assert.Equal(t, []any{int64(90), int64(90), int64(7)}, args)

	_, _, err = b.Select(SelectStmt{Table: "player", After: &Keyset{Columns: []string{"id"}}})
	assert.ErrorIs(t, err, ErrInvalidOperand)
}

func TestCount(t *testing.T) {
	sql, args, err := mysqlBuilder().Count(SelectStmt{
		Table:  "player",
		Filter: types.Filter{"player.level": types.Between(1, 10)},
		Order:  []types.OrderBy{types.Asc("player.id")},
		Limit:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS count FROM `player` WHERE (`player`.`level` BETWEEN ? AND ?)", sql)
	assert.Equal(t, []any{1, 10}, args)
}

func TestInsertMySQL(t *testing.T) {
	sql, args, err := mysqlBuilder().Insert(InsertStmt{
		Table: "player",
		Entities: []types.Values{
			{"id": 1, "name": "a"},
			{"id": 2, "name": "b"},
		},
		Ignore:              true,
		DuplicateKeyColumns: []string{"name"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT IGNORE INTO `player` (`id`,`name`) VALUES (?,?),(?,?) ON DUPLICATE KEY UPDATE `name` = VALUES(`name`)",
		sql)
	assert.Equal(t, []any{1, "a", 2, "b"}, args)
}

func TestInsertReturningUnsupportedOnMySQL(t *testing.T) {
	_, _, err := mysqlBuilder().Insert(InsertStmt{
		Table:     "player",
		Entities:  []types.Values{{"name": "a"}},
		Returning: []string{"id"},
	})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestInsertPostgres(t *testing.T) {
	b := New(pgdialect.New())
	sql, _, err := b.Insert(InsertStmt{
		Table:               "player",
		Entities:            []types.Values{{"id": 1, "name": "a"}},
		DuplicateKeyColumns: []string{"name"},
		Returning:           []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "player" ("id","name") VALUES (?,?) ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name" RETURNING "id"`,
		sql)

	sql, _, err = b.Insert(InsertStmt{Table: "player", Entities: []types.Values{{"id": 1}}, Ignore: true})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "player" ("id") VALUES (?) ON CONFLICT DO NOTHING`, sql)
}

func TestInsertSQLiteIgnore(t *testing.T) {
	sql, _, err := New(sqlitedialect.New()).Insert(InsertStmt{
		Table:    "player",
		Entities: []types.Values{{"id": 1}},
		Ignore:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `INSERT OR IGNORE INTO "player" ("id") VALUES (?)`, sql)
}

func TestInsertMissingEntities(t *testing.T) {
	_, _, err := mysqlBuilder().Insert(InsertStmt{Table: "player"})
	assert.ErrorIs(t, err, ErrMissingEntities)
	assert.True(t, IsConstructionError(err))
}

// The column list is taken from the first entity only: later rows write
// NULL for missing keys and silently lose extra keys.
func TestInsertHeterogeneousBatchUsesFirstRowColumns(t *testing.T) {
	entities := []types.Values{
		{"id": 1, "level": 5, "name": "a"},
		{"id": 2, "name": "b", "guild_id": 9},
	}
	cols, uniform := InsertColumns(entities)
	assert.Equal(t, []string{"id", "level", "name"}, cols)
	assert.False(t, uniform)

	sql, args, err := mysqlBuilder().Insert(InsertStmt{Table: "player", Entities: entities})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `player` (`id`,`level`,`name`) VALUES (?,?,?),(?,?,?)", sql)
	assert.Equal(t, []any{1, 5, "a", 2, nil, "b"}, args)
	assert.NotContains(t, sql, "guild_id")

	_, _, err = mysqlBuilder().Insert(InsertStmt{Table: "player", Entities: entities, Strict: true})
	assert.ErrorIs(t, err, ErrHeterogeneousBatch)
}

func TestInsertRawValue(t *testing.T) {
	sql, args, err := mysqlBuilder().Insert(InsertStmt{
		Table:    "log",
		Entities: []types.Values{{"created_at": types.SQL("NOW()"), "message": "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `log` (`created_at`,`message`) VALUES (NOW(),?)", sql)
	assert.Equal(t, []any{"hi"}, args)
}

func TestUpdate(t *testing.T) {
	sql, args, err := mysqlBuilder().Update(UpdateStmt{
		Table: "player",
		Set: types.Values{
			"gold": types.Raw(types.SQL("`gold` + 10")),
			"name": "x",
			"note": types.IsNull(),
		},
		Filter: types.Filter{"player.id": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `player` SET `gold` = `gold` + 10, `name` = ?, `note` = ? WHERE (`player`.`id` = ?)", sql)
	assert.Equal(t, []any{"x", nil, 3}, args)
}

func TestUpdateRejectsEmptySetAndComparisons(t *testing.T) {
	_, _, err := mysqlBuilder().Update(UpdateStmt{Table: "player"})
	assert.ErrorIs(t, err, ErrEmptySet)

	_, _, err = mysqlBuilder().Update(UpdateStmt{Table: "player", Set: types.Values{"gold": types.Gt(1)}})
	assert.ErrorIs(t, err, ErrInvalidOperand)

	_, _, err = mysqlBuilder().Update(UpdateStmt{Table: "player", Set: types.Values{"gold": types.ColumnFilter{Op: "swap"}}})
	var unknown *UnknownFilterOperatorError
	assert.ErrorAs(t, err, &unknown)
}

func TestDelete(t *testing.T) {
	sql, args, err := mysqlBuilder().Delete(DeleteStmt{
		Table:  "player",
		Filter: types.Filter{"player.id": types.In(1, 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `player` WHERE (`player`.`id` IN (?,?))", sql)
	assert.Equal(t, []any{1, 2}, args)
}

func TestTruncate(t *testing.T) {
	sql, err := mysqlBuilder().Truncate("player")
	require.NoError(t, err)
	assert.Equal(t, "TRUNCATE TABLE `player`", sql)

	sql, err = New(sqlitedialect.New()).Truncate("player")
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "player"`, sql)

	_, err = mysqlBuilder().Truncate("")
	assert.ErrorIs(t, err, ErrMissingTable)
}
