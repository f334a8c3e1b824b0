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
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/uptrace/bun/dialect/feature"

	"github.com/tomoncle/gamedb/types"
)

// UpdateStmt describes an update. Set values are plain values, a
// types.Fragment, or types.Raw(...) for expressions such as
// `gold` + 10.
type UpdateStmt struct {
	Table  string
	Set    types.Values
	Filter types.Filter
	Where  []types.Expr
}

func (b *Builder) Update(s UpdateStmt) (string, []any, error) {
	if s.Table == "" {
		return "", nil, ErrMissingTable
	}
	if len(s.Set) == 0 {
		return "", nil, ErrEmptySet
	}
	w, err := b.where(s.Filter, s.Where, nil)
	if err != nil {
		return "", nil, err
	}

	cols := make([]string, 0, len(s.Set))
	for c := range s.Set {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	q := sq.Update(b.QuoteIdent(s.Table))
	for _, c := range cols {
		v, err := b.assignment(c, s.Set[c])
		if err != nil {
			return "", nil, err
		}
		q = q.Set(b.QuoteIdent(c), v)
	}
	return q.Where(w).ToSql()
}

// assignment accepts the equality and raw forms of the filter grammar;
// other operators make no sense on the left of SET.
func (b *Builder) assignment(column string, v any) (any, error) {
	if frag, ok := v.(types.Fragment); ok {
		v = types.Raw(frag)
	}
	f, ok := v.(types.ColumnFilter)
	if !ok {
		return v, nil
	}
	switch f.Op {
	case types.OpEqual:
		if isList(f.Operand) {
			return nil, invalidOperand(column, f.Op, f.Operand)
		}
		return f.Operand, nil
	case types.OpIsNull:
		return nil, nil
	case types.OpRaw:
		frag, ok := f.Operand.(types.Fragment)
		if !ok || frag.IsZero() {
			return nil, invalidOperand(column, f.Op, f.Operand)
		}
		return sq.Expr(frag.String()), nil
	default:
		if !f.Op.IsValid() {
			return nil, &UnknownFilterOperatorError{Column: column, Op: f.Op}
		}
		return nil, invalidOperand(column, f.Op, f.Operand)
	}
}

// DeleteStmt describes a delete with the same WHERE rules as Select.
type DeleteStmt struct {
	Table  string
	Filter types.Filter
	Where  []types.Expr
}

func (b *Builder) Delete(s DeleteStmt) (string, []any, error) {
	if s.Table == "" {
		return "", nil, ErrMissingTable
	}
	w, err := b.where(s.Filter, s.Where, nil)
	if err != nil {
		return "", nil, err
	}
	return sq.Delete(b.QuoteIdent(s.Table)).Where(w).ToSql()
}

// Truncate empties a table, falling back to DELETE FROM where the dialect
// has no TRUNCATE.
func (b *Builder) Truncate(table string) (string, error) {
	if table == "" {
		return "", ErrMissingTable
	}
	if b.hasFeature(feature.TableTruncate) {
		return "TRUNCATE TABLE " + b.QuoteIdent(table), nil
	}
	return "DELETE FROM " + b.QuoteIdent(table), nil
}
