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
	"reflect"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/gamedb/types"
)

// Builder renders statements for one SQL dialect. It holds no state beyond
// the dialect and is safe for concurrent use.
type Builder struct {
	dialect schema.Dialect
}

func New(d schema.Dialect) *Builder {
	return &Builder{dialect: d}
}

func (b *Builder) Dialect() schema.Dialect { return b.dialect }

func (b *Builder) hasFeature(f feature.Feature) bool {
	return b.dialect.Features().Has(f)
}

func (b *Builder) isSQLite() bool { return b.dialect.Name() == dialect.SQLite }

// QuoteIdent quotes every dot-separated part of a column or table name, so
// "player.level" becomes `player`.`level` on MySQL.
func (b *Builder) QuoteIdent(name string) string {
	q := string(b.dialect.IdentQuote())
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "*" {
			continue
		}
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

func (b *Builder) quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = b.QuoteIdent(n)
	}
	return out
}

// Translate renders a single column filter, e.g. `player`.`level` >= ?.
func (b *Builder) Translate(column string, filter any) (string, []any, error) {
	cond, err := b.condition(column, filter)
	if err != nil {
		return "", nil, err
	}
	return cond.ToSql()
}

func (b *Builder) condition(column string, filter any) (sq.Sqlizer, error) {
	f := types.AsColumnFilter(filter)
	col := b.QuoteIdent(column)

	switch f.Op {
	case types.OpRaw:
		frag, ok := f.Operand.(types.Fragment)
		if !ok || frag.IsZero() {
			return nil, invalidOperand(column, f.Op, f.Operand)
		}
		return sq.Expr(col + " = " + frag.String()), nil
	case types.OpIsNull:
		return sq.Expr(col + " IS NULL"), nil
	case types.OpNotNull:
		return sq.Expr(col + " IS NOT NULL"), nil
	case types.OpEqual:
		if isList(f.Operand) {
			return nil, invalidOperand(column, f.Op, f.Operand)
		}
		return sq.Eq{col: f.Operand}, nil
	case types.OpNotEqual:
		if isList(f.Operand) {
			return nil, invalidOperand(column, f.Op, f.Operand)
		}
		return sq.NotEq{col: f.Operand}, nil
	case types.OpGreater, types.OpGreaterEqual, types.OpLess, types.OpLessEqual:
		if f.Operand == nil || isList(f.Operand) {
			return nil, invalidOperand(column, f.Op, f.Operand)
		}
		return comparison(f.Op, col, f.Operand), nil
	case types.OpIn:
		if !isList(f.Operand) {
			return nil, invalidOperand(column, f.Op, f.Operand)
		}
		// squirrel renders an empty list as (1=0).
		return sq.Eq{col: f.Operand}, nil
	case types.OpLike:
		if f.Operand == nil || isList(f.Operand) {
			return nil, invalidOperand(column, f.Op, f.Operand)
		}
		return sq.Like{col: f.Operand}, nil
	case types.OpBetween:
		lo, hi, ok := bounds(f.Operand)
		if !ok {
			return nil, invalidOperand(column, f.Op, f.Operand)
		}
		return sq.Expr(col+" BETWEEN ? AND ?", lo, hi), nil
	default:
		return nil, &UnknownFilterOperatorError{Column: column, Op: f.Op}
	}
}

func comparison(op types.Operator, col string, v any) sq.Sqlizer {
	switch op {
	case types.OpGreater:
		return sq.Gt{col: v}
	case types.OpGreaterEqual:
		return sq.GtOrEq{col: v}
	case types.OpLess:
		return sq.Lt{col: v}
	default:
		return sq.LtOrEq{col: v}
	}
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func bounds(v any) (lo, hi any, ok bool) {
	if !isList(v) {
		return nil, nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Len() != 2 {
		return nil, nil, false
	}
	lo, hi = rv.Index(0).Interface(), rv.Index(1).Interface()
	if lo == nil || hi == nil {
		return nil, nil, false
	}
	return lo, hi, true
}

// where is shared by every statement kind so filter semantics are identical
// on the read and write paths.
func (b *Builder) where(filter types.Filter, extra []types.Expr, after *Keyset) (sq.Sqlizer, error) {
	conds := sq.And{}
	for _, col := range filter.Columns() {
		c, err := b.condition(col, filter[col])
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	for _, e := range extra {
		if e.SQL.IsZero() {
			continue
		}
		conds = append(conds, sq.Expr(e.SQL.String(), e.Args...))
	}
	if after != nil {
		c, err := b.keyset(after)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if len(conds) == 0 {
		return sq.Expr("1=1"), nil
	}
	return conds, nil
}
