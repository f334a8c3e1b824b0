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
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tomoncle/gamedb/types"
)

// Keyset restricts a select to rows strictly after (or before, when Desc)
// the given sort key values. With several columns the comparison is
// lexicographic.
type Keyset struct {
	Columns []string
	Values  []any
	Desc    bool
}

func (b *Builder) keyset(k *Keyset) (sq.Sqlizer, error) {
	if len(k.Columns) == 0 || len(k.Columns) != len(k.Values) {
		return nil, fmt.Errorf("%w: keyset has %d columns and %d values", ErrInvalidOperand, len(k.Columns), len(k.Values))
	}
	past := func(col string, v any) sq.Sqlizer {
		if k.Desc {
			return sq.Lt{col: v}
		}
		return sq.Gt{col: v}
	}
	if len(k.Columns) == 1 {
		return past(b.QuoteIdent(k.Columns[0]), k.Values[0]), nil
	}
	or := sq.Or{}
	for i := range k.Columns {
		and := sq.And{}
		for j := 0; j < i; j++ {
			and = append(and, sq.Eq{b.QuoteIdent(k.Columns[j]): k.Values[j]})
		}
		and = append(and, past(b.QuoteIdent(k.Columns[i]), k.Values[i]))
		or = append(or, and)
	}
	return or, nil
}

// SelectStmt is the query descriptor for reads.
type SelectStmt struct {
	Table      string
	Columns    []types.Fragment
	Joins      []types.Fragment
	Filter     types.Filter
	Where      []types.Expr
	After      *Keyset
	Group      []types.Fragment
	Having     []types.Expr
	Order      []types.OrderBy
	Limit      int
	// KeyColumns are selected again under KeyAlias(i), so a page cursor
	// can be read back without colliding with joined columns.
	KeyColumns []string
}

// KeyAlias is the result label of SelectStmt.KeyColumns[i].
func KeyAlias(i int) string { return fmt.Sprintf("gamedb_key_%d", i) }

// Select renders
//
//	SELECT cols FROM table joins WHERE ... [GROUP BY] [HAVING] ORDER BY ... [LIMIT n]
//
// with WHERE defaulting to 1=1 and ORDER BY to 1 ASC.
func (b *Builder) Select(s SelectStmt) (string, []any, error) {
	if s.Table == "" {
		return "", nil, ErrMissingTable
	}
	cols := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if !c.IsZero() {
			cols = append(cols, c.String())
		}
	}
	if len(cols) == 0 {
		if len(fragments(s.Joins)) > 0 {
			cols = []string{b.QuoteIdent(s.Table) + ".*"}
		} else {
			cols = []string{"*"}
		}
	}
	for i, key := range s.KeyColumns {
		cols = append(cols, b.QuoteIdent(key)+" AS "+b.QuoteIdent(KeyAlias(i)))
	}

	w, err := b.where(s.Filter, s.Where, s.After)
	if err != nil {
		return "", nil, err
	}

	q := sq.Select(cols...).From(b.QuoteIdent(s.Table))
	for _, j := range s.Joins {
		if !j.IsZero() {
			q = q.JoinClause(j.String())
		}
	}
	q = q.Where(w)

	if group := fragments(s.Group); len(group) > 0 {
		q = q.GroupBy(group...)
	}
	for _, h := range s.Having {
		if !h.SQL.IsZero() {
			q = q.Having(sq.Expr(h.SQL.String(), h.Args...))
		}
	}
	q = q.OrderBy(b.orderBy(s.Order)...)
	if s.Limit > 0 {
		q = q.Limit(uint64(s.Limit))
	}
	return q.ToSql()
}

// Count renders SELECT COUNT(*) over the same FROM, joins and WHERE as s.
func (b *Builder) Count(s SelectStmt) (string, []any, error) {
	if s.Table == "" {
		return "", nil, ErrMissingTable
	}
	w, err := b.where(s.Filter, s.Where, s.After)
	if err != nil {
		return "", nil, err
	}
	q := sq.Select("COUNT(*) AS count").From(b.QuoteIdent(s.Table))
	for _, j := range s.Joins {
		if !j.IsZero() {
			q = q.JoinClause(j.String())
		}
	}
	return q.Where(w).ToSql()
}

func (b *Builder) orderBy(order []types.OrderBy) []string {
	out := make([]string, 0, len(order))
	for _, o := range order {
		var term string
		switch {
		case o.Column != "":
			term = b.QuoteIdent(o.Column)
		case !o.Expr.IsZero():
			term = o.Expr.String()
		default:
			continue
		}
		if o.Desc {
			term += " DESC"
		} else {
			term += " ASC"
		}
		out = append(out, term)
	}
	if len(out) == 0 {
		out = append(out, "1 ASC")
	}
	return out
}

func fragments(fs []types.Fragment) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		if !f.IsZero() {
			out = append(out, f.String())
		}
	}
	return out
}
