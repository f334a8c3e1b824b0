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

package types

import "sort"

// ColumnFilter pairs an operator with its operand. The operand is a scalar,
// a slice for OpIn, a [2]any for OpBetween, a Fragment for OpRaw and nil for
// the null checks.
type ColumnFilter struct {
	Op      Operator
	Operand any
}

// Filter maps fully-qualified column names ("table.column") to a condition.
// Values that are not a ColumnFilter are shorthand for Eq(value). Entries are
// ANDed together; there is no OR.
type Filter map[string]any

// Columns returns the filter keys in a stable order.
func (f Filter) Columns() []string {
	cols := make([]string, 0, len(f))
	for c := range f {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// With returns a copy of f with column set to cond.
func (f Filter) With(column string, cond any) Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[column] = cond
	return out
}

// AsColumnFilter normalizes a filter value: a ColumnFilter is returned as is,
// anything else becomes an equality.
func AsColumnFilter(v any) ColumnFilter {
	switch f := v.(type) {
	case ColumnFilter:
		return f
	case *ColumnFilter:
		if f != nil {
			return *f
		}
		return ColumnFilter{Op: OpIsNull}
	default:
		return ColumnFilter{Op: OpEqual, Operand: v}
	}
}

func Raw(sql Fragment) ColumnFilter { return ColumnFilter{Op: OpRaw, Operand: sql} }

func IsNull() ColumnFilter { return ColumnFilter{Op: OpIsNull} }

func NotNull() ColumnFilter { return ColumnFilter{Op: OpNotNull} }

func Eq(v any) ColumnFilter { return ColumnFilter{Op: OpEqual, Operand: v} }

func NotEq(v any) ColumnFilter { return ColumnFilter{Op: OpNotEqual, Operand: v} }

func Gt(v any) ColumnFilter { return ColumnFilter{Op: OpGreater, Operand: v} }

func Gte(v any) ColumnFilter { return ColumnFilter{Op: OpGreaterEqual, Operand: v} }

func Lt(v any) ColumnFilter { return ColumnFilter{Op: OpLess, Operand: v} }

func Lte(v any) ColumnFilter { return ColumnFilter{Op: OpLessEqual, Operand: v} }

// In matches any of values. An empty list matches nothing.
func In[V any](values ...V) ColumnFilter {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	return ColumnFilter{Op: OpIn, Operand: list}
}

func Like(pattern string) ColumnFilter { return ColumnFilter{Op: OpLike, Operand: pattern} }

// Between is inclusive on both ends.
func Between(lo, hi any) ColumnFilter {
	return ColumnFilter{Op: OpBetween, Operand: [2]any{lo, hi}}
}
