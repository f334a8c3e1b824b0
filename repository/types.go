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

package repository

import (
	"context"
	"errors"

	"github.com/tomoncle/gamedb/database"
	"github.com/tomoncle/gamedb/hashid"
	"github.com/tomoncle/gamedb/sqlbuilder"
	"github.com/tomoncle/gamedb/types"
)

var (
	ErrNotFound      = errors.New("repository: entity not found")
	ErrMissingParser = errors.New("repository: row parser is required")
	ErrNoSortKey     = errors.New("repository: page request needs at least one sort key")
	ErrNoCodec       = errors.New("repository: pagination needs a cursor codec")
)

// Descriptor is what an entity repository supplies: its table, the joins
// and columns every read uses, and how to turn a row into an entity.
type Descriptor[T any] struct {
	Table   string
	Columns []types.Fragment
	Joins   []types.Fragment
	Parser  types.RowParser[T]
	// Codec mints and reads the cursors returned by Page.
	Codec *hashid.Codec
}

// Query is the per-call part of a read. A nil Conn runs the statement on a
// connection acquired and released by the pool.
type Query struct {
	Filter types.Filter
	Where  []types.Expr
	Order  []types.OrderBy
	Group  []types.Fragment
	Having []types.Expr
	Limit  int
	Conn   *database.Conn
}

// Insert describes a CreateEntities call.
type Insert struct {
	Entities            []types.Values
	Ignore              bool
	DuplicateKeyColumns []string
	ConflictKeys        []string
	Returning           []string
	Strict              bool
	Conn                *database.Conn
}

// Update describes an UpdateEntities call. Set values may be plain values,
// types.Raw fragments for in-place expressions, or nil.
type Update struct {
	Filter types.Filter
	Where  []types.Expr
	Set    types.Values
	Conn   *database.Conn
}

// Delete describes a DeleteEntities call.
type Delete struct {
	Filter types.Filter
	Where  []types.Expr
	Conn   *database.Conn
}

// Result reports a write. Returned holds RETURNING rows when requested.
type Result struct {
	InsertID     int64
	AffectedRows int64
	Returned     []types.Row
}

// ReadRepository covers entity reads.
type ReadRepository[T any] interface {
	GetEntities(ctx context.Context, q Query) ([]T, error)

	GetEntity(ctx context.Context, q Query) (T, error)

	CountEntities(ctx context.Context, q Query) (int64, error)
}

// WriteRepository covers entity writes.
type WriteRepository[T any] interface {
	CreateEntities(ctx context.Context, in Insert) (Result, error)

	UpdateEntities(ctx context.Context, in Update) (Result, error)

	DeleteEntities(ctx context.Context, in Delete) (Result, error)

	TruncateEntities(ctx context.Context, conn *database.Conn) error
}

// PageQueryRepository defines keyset pagination over entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, q Query, page *types.PageRequest) (*types.Page[T], error)
}

// Repository combines reads, writes, and pagination over one table and
// exposes the statement builder for the table's dialect.
type Repository[T any] interface {
	ReadRepository[T]
	WriteRepository[T]
	PageQueryRepository[T]
	Table() string
	Builder() (*sqlbuilder.Builder, error)
}
