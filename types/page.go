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

import "fmt"

// LimitRange bounds page sizes. Requests outside [Min, Max] are clamped,
// a zero or negative request takes Default.
type LimitRange struct {
	Default int `yaml:"default" env:"PAGE_LIMIT_DEFAULT" env-default:"20"`
	Min     int `yaml:"min" env:"PAGE_LIMIT_MIN" env-default:"1"`
	Max     int `yaml:"max" env:"PAGE_LIMIT_MAX" env-default:"100"`
}

// DefaultLimitRange is used when no pagination config is supplied.
func DefaultLimitRange() LimitRange {
	return LimitRange{Default: 20, Min: 1, Max: 100}
}

func (r LimitRange) Validate() error {
	if r.Min < 1 {
		return fmt.Errorf("pagination min limit must be positive, got %d", r.Min)
	}
	if r.Max < r.Min {
		return fmt.Errorf("pagination max limit %d is below min %d", r.Max, r.Min)
	}
	if r.Default < r.Min || r.Default > r.Max {
		return fmt.Errorf("pagination default limit %d outside [%d, %d]", r.Default, r.Min, r.Max)
	}
	return nil
}

// Clamp maps a requested limit into [Min, Max]. Zero means unset and takes
// Default; a negative limit is below Min like any other.
func (r LimitRange) Clamp(limit int) int {
	if limit == 0 {
		limit = r.Default
	}
	if limit < r.Min {
		return r.Min
	}
	if limit > r.Max {
		return r.Max
	}
	return limit
}

// PageRequest describes one keyset page: the sort key column(s), the opaque
// cursor of the last row already seen, and the requested size.
type PageRequest struct {
	SortKeys []string
	Cursor   string
	Limit    int
	Desc     bool
}

// NewPageRequest constructs an ascending single-key page request.
func NewPageRequest(sortKey string, cursor string, limit int) *PageRequest {
	return &PageRequest{SortKeys: []string{sortKey}, Cursor: cursor, Limit: limit}
}

// HasCursor reports whether the request continues a previous page.
func (p *PageRequest) HasCursor() bool { return p != nil && p.Cursor != "" }

// Page holds one page of entities and the cursor for the following page.
// NextCursor is empty once the result set is exhausted.
type Page[T any] struct {
	Items      []T
	NextCursor string
	Limit      int
}

func (p *Page[T]) HasMore() bool { return p.NextCursor != "" }
