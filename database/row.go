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

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tomoncle/gamedb/types"
)

// ErrDuplicateColumn is returned when two result columns share a label, as
// with SELECT * over joined tables that both have an id.
var ErrDuplicateColumn = errors.New("duplicate result column")

// ScanRows reads every remaining row of r into column-name keyed maps and
// closes nothing; the caller owns r.
func ScanRows(r *sql.Rows) ([]types.Row, error) {
	columns, err := r.ColumnTypes()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if _, dup := seen[col.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Name())
		}
		seen[col.Name()] = struct{}{}
	}

	out := make([]types.Row, 0)
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for r.Next() {
		if err := r.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(types.Row, len(columns))
		for i, col := range columns {
			row[col.Name()] = CastColumn(col.DatabaseTypeName(), values[i])
			values[i] = nil
		}
		out = append(out, row)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CastColumn normalizes a scanned value by its database type. A BIT value
// holding the single byte 0x00 or 0x01 becomes int64 0 or 1; other byte
// slices become strings unless the column is binary.
func CastColumn(dbType string, v any) any {
	t := strings.ToUpper(dbType)
	switch x := v.(type) {
	case []byte:
		if isBitType(t) {
			if len(x) == 1 && x[0] <= 1 {
				return int64(x[0])
			}
			return x
		}
		if isBinaryType(t) {
			return x
		}
		return string(x)
	case bool:
		if isBitType(t) {
			if x {
				return int64(1)
			}
			return int64(0)
		}
	}
	return v
}

func isBitType(t string) bool {
	return t == "BIT" || strings.HasPrefix(t, "BIT(")
}

func isBinaryType(t string) bool {
	switch {
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BINARY"), t == "BYTEA", t == "GEOMETRY":
		return true
	}
	return false
}
