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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Operator is a column filter operator. The set is closed: anything not
// declared below is rejected when a statement is built.
type Operator string

const (
	OpRaw          Operator = "raw"
	OpIsNull       Operator = "equal-null"
	OpNotNull      Operator = "not-equal-null"
	OpEqual        Operator = "equal"
	OpNotEqual     Operator = "not-equal"
	OpGreater      Operator = "greater"
	OpGreaterEqual Operator = "greater-or-equal"
	OpLess         Operator = "less"
	OpLessEqual    Operator = "less-or-equal"
	OpIn           Operator = "in-set"
	OpLike         Operator = "like"
	OpBetween      Operator = "between"
)

var operators = []struct {
	op   Operator
	desc string
}{
	{OpRaw, "column = <trusted sql>"},
	{OpIsNull, "column IS NULL"},
	{OpNotNull, "column IS NOT NULL"},
	{OpEqual, "column = value"},
	{OpNotEqual, "column <> value"},
	{OpGreater, "column > value"},
	{OpGreaterEqual, "column >= value"},
	{OpLess, "column < value"},
	{OpLessEqual, "column <= value"},
	{OpIn, "column IN (values)"},
	{OpLike, "column LIKE pattern"},
	{OpBetween, "column BETWEEN lo AND hi"},
}

var _ BaseEnum = OpEqual

// Operators returns every supported operator in declaration order.
func Operators() []Operator {
	out := make([]Operator, len(operators))
	for i, o := range operators {
		out[i] = o.op
	}
	return out
}

// ParseOperator resolves a user-supplied operator name. The boolean is false
// for names outside the closed set.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	return op, op.IsValid()
}

func (o Operator) IsValid() bool { return o.Number() != IllegalValue }

func (o Operator) Number() int {
	for i, d := range operators {
		if d.op == o {
			return i
		}
	}
	return IllegalValue
}

func (o Operator) String() string { return string(o) }

func (o Operator) Name() string {
	if !o.IsValid() {
		return IllegalName
	}
	return string(o)
}

func (o Operator) Desc() string {
	if n := o.Number(); n != IllegalValue {
		return operators[n].desc
	}
	return IllegalDesc
}
