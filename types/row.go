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

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrOutOfRange is returned when a column value does not fit in an int64.
var ErrOutOfRange = errors.New("value out of int64 range")

// Row is one result row keyed by column label. Text columns arrive as
// string, integers as int64 and single-bit columns as int64 0/1.
type Row map[string]any

// RowParser maps a raw row onto an entity.
type RowParser[T any] func(row Row) (T, error)

func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

func (r Row) IsNull(col string) bool { return r[col] == nil }

func (r Row) Int64(col string) (int64, error) {
	switch v := r[col].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("column %s: %w: %d", col, ErrOutOfRange, v)
		}
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("column %s: cannot convert %T to int64", col, v)
	}
}

func (r Row) Int(col string) (int, error) {
	v, err := r.Int64(col)
	return int(v), err
}

func (r Row) String(col string) (string, error) {
	switch v := r[col].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (r Row) Bool(col string) (bool, error) {
	n, err := r.Int64(col)
	return n != 0, err
}

func (r Row) Float64(col string) (float64, error) {
	switch v := r[col].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("column %s: cannot convert %T to float64", col, v)
	}
}

// Time accepts native time values and the textual forms MySQL and SQLite
// return when parseTime is off.
func (r Row) Time(col string) (time.Time, error) {
	switch v := r[col].(type) {
	case time.Time:
		return v, nil
	case nil:
		return time.Time{}, nil
	case []byte:
		return parseTime(col, string(v))
	case string:
		return parseTime(col, v)
	default:
		return time.Time{}, fmt.Errorf("column %s: cannot convert %T to time", col, v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(col, s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: unrecognised time %q", col, s)
}

// Values is one entity to insert or the SET list of an update, keyed by
// column name.
type Values map[string]any
