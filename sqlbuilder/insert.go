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
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/uptrace/bun/dialect/feature"

	"github.com/tomoncle/gamedb/types"
)

// InsertStmt describes a batch insert.
//
// The column list comes from the keys of the first entity. Later entities
// missing one of those keys write NULL for it and keys the first entity does
// not have are dropped, unless Strict is set.
type InsertStmt struct {
	Table    string
	Entities []types.Values
	Ignore   bool
	// DuplicateKeyColumns are overwritten from the incoming row when the
	// insert hits a unique key: ON DUPLICATE KEY UPDATE col = VALUES(col) on
	// MySQL, ON CONFLICT (ConflictKeys) DO UPDATE elsewhere.
	DuplicateKeyColumns []string
	ConflictKeys        []string
	Returning           []string
	Strict              bool
}

// InsertColumns returns the batch column list and whether every entity has
// exactly that key set.
func InsertColumns(entities []types.Values) ([]string, bool) {
	if len(entities) == 0 {
		return nil, true
	}
	cols := make([]string, 0, len(entities[0]))
	for c := range entities[0] {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	uniform := true
	for _, e := range entities[1:] {
		if len(e) != len(cols) {
			uniform = false
			break
		}
		for _, c := range cols {
			if _, ok := e[c]; !ok {
				uniform = false
				break
			}
		}
	}
	return cols, uniform
}

func (b *Builder) Insert(s InsertStmt) (string, []any, error) {
	if s.Table == "" {
		return "", nil, ErrMissingTable
	}
	if len(s.Entities) == 0 || len(s.Entities[0]) == 0 {
		return "", nil, ErrMissingEntities
	}
	cols, uniform := InsertColumns(s.Entities)
	if s.Strict && !uniform {
		return "", nil, ErrHeterogeneousBatch
	}

	q := sq.Insert(b.QuoteIdent(s.Table)).Columns(b.quoteAll(cols)...)
	for _, e := range s.Entities {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = insertValue(e[c])
		}
		q = q.Values(row...)
	}

	if s.Ignore {
		switch {
		case len(s.DuplicateKeyColumns) > 0 && !b.hasFeature(feature.InsertOnDuplicateKey):
			return "", nil, fmt.Errorf("%w: ignore combined with duplicate key update", ErrUnsupported)
		case b.isSQLite():
			q = q.Options("OR IGNORE")
		case b.hasFeature(feature.InsertIgnore):
			q = q.Options("IGNORE")
		case b.hasFeature(feature.InsertOnConflict):
			q = q.Suffix("ON CONFLICT DO NOTHING")
		default:
			return "", nil, fmt.Errorf("%w: insert ignore", ErrUnsupported)
		}
	}

	if len(s.DuplicateKeyColumns) > 0 {
		suffix, err := b.onDuplicate(s.DuplicateKeyColumns, s.ConflictKeys)
		if err != nil {
			return "", nil, err
		}
		q = q.Suffix(suffix)
	}

	if len(s.Returning) > 0 {
		if !b.hasFeature(feature.InsertReturning) {
			return "", nil, fmt.Errorf("%w: insert returning", ErrUnsupported)
		}
		q = q.Suffix("RETURNING " + strings.Join(b.quoteAll(s.Returning), ", "))
	}
	return q.ToSql()
}

func (b *Builder) onDuplicate(columns, conflictKeys []string) (string, error) {
	set := make([]string, len(columns))
	switch {
	case b.hasFeature(feature.InsertOnDuplicateKey):
		for i, c := range columns {
			col := b.QuoteIdent(c)
			set[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(set, ", "), nil
	case b.hasFeature(feature.InsertOnConflict):
		if len(conflictKeys) == 0 {
			conflictKeys = []string{"id"}
		}
		for i, c := range columns {
			col := b.QuoteIdent(c)
			set[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
		}
		return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(b.quoteAll(conflictKeys), ", "), strings.Join(set, ", ")), nil
	default:
		return "", fmt.Errorf("%w: duplicate key update", ErrUnsupported)
	}
}

func insertValue(v any) any {
	switch x := v.(type) {
	case types.Fragment:
		return sq.Expr(x.String())
	case types.ColumnFilter:
		if x.Op == types.OpRaw {
			if frag, ok := x.Operand.(types.Fragment); ok {
				return sq.Expr(frag.String())
			}
		}
		return x.Operand
	default:
		return v
	}
}

// IsConstructionError reports whether err was raised while building a
// statement rather than by the database.
func IsConstructionError(err error) bool {
	var unknown *UnknownFilterOperatorError
	return errors.As(err, &unknown) ||
		errors.Is(err, ErrMissingTable) ||
		errors.Is(err, ErrMissingEntities) ||
		errors.Is(err, ErrHeterogeneousBatch) ||
		errors.Is(err, ErrEmptySet) ||
		errors.Is(err, ErrInvalidOperand) ||
		errors.Is(err, ErrUnsupported)
}
