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
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitRangeClamp(t *testing.T) {
	r := DefaultLimitRange()
	cases := map[int]int{-5: 1, -1: 1, 0: 20, 1: 1, 20: 20, 100: 100, 101: 100}
	for requested, want := range cases {
		assert.Equal(t, want, r.Clamp(requested), "requested %d", requested)
	}

	narrow := LimitRange{Default: 3, Min: 2, Max: 4}
	assert.Equal(t, 2, narrow.Clamp(-1))
	assert.Equal(t, 3, narrow.Clamp(0))
	assert.Equal(t, 2, narrow.Clamp(1))
}

func TestRowInt64(t *testing.T) {
	row := Row{
		"id":      int64(7),
		"small":   uint64(42),
		"max":     uint64(math.MaxInt64),
		"huge":    uint64(math.MaxUint64),
		"text":    "12",
		"active":  true,
		"missing": nil,
	}

	for col, want := range map[string]int64{"id": 7, "small": 42, "max": math.MaxInt64, "text": 12, "active": 1, "missing": 0} {
		got, err := row.Int64(col)
		require.NoError(t, err, col)
		assert.Equal(t, want, got, col)
	}

	_, err := row.Int64("huge")
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "huge")

	_, err = Row{"huge": strconv.FormatUint(math.MaxUint64, 10)}.Int64("huge")
	assert.ErrorIs(t, err, strconv.ErrRange)
}
