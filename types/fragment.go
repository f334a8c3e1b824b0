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

import "strings"

// constant is deliberately unexported: only untyped string constants convert
// to it implicitly, so a Fragment cannot be built from a runtime string such
// as request input.
type constant string

// Fragment is a trusted piece of SQL (join clause, column list, group or
// having expression) that is concatenated into statements verbatim.
type Fragment struct {
	sql string
}

// SQL wraps a string constant as a Fragment.
func SQL(s constant) Fragment { return Fragment{sql: string(s)} }

// JoinFragments concatenates fragments with sep.
func JoinFragments(sep constant, parts ...Fragment) Fragment {
	ss := make([]string, 0, len(parts))
	for _, p := range parts {
		if !p.IsZero() {
			ss = append(ss, p.sql)
		}
	}
	return Fragment{sql: strings.Join(ss, string(sep))}
}

func (f Fragment) String() string { return f.sql }

func (f Fragment) IsZero() bool { return strings.TrimSpace(f.sql) == "" }

// Expr is a trusted fragment with bound arguments for its ? placeholders.
type Expr struct {
	SQL  Fragment
	Args []any
}

// Where builds an Expr for the free-form WHERE list.
func Where(sql Fragment, args ...any) Expr { return Expr{SQL: sql, Args: args} }

// OrderBy is one ORDER BY term: either a column name, quoted when rendered,
// or a trusted expression.
type OrderBy struct {
	Column string
	Expr   Fragment
	Desc   bool
}

func Asc(column string) OrderBy { return OrderBy{Column: column} }

func Desc(column string) OrderBy { return OrderBy{Column: column, Desc: true} }

func OrderExpr(expr Fragment) OrderBy { return OrderBy{Expr: expr} }
