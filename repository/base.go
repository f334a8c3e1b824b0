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
	"fmt"
	"strings"

	"github.com/tomoncle/gamedb/database"
	"github.com/tomoncle/gamedb/hashid"
	"github.com/tomoncle/gamedb/sqlbuilder"
	"github.com/tomoncle/gamedb/types"
)

type baseRepositoryImpl[T any] struct {
	pool   *database.Pool
	desc   Descriptor[T]
	limits types.LimitRange
}

type Option[T any] func(*baseRepositoryImpl[T])

// WithLimits sets the page size range used by Page.
func WithLimits[T any](limits types.LimitRange) Option[T] {
	return func(r *baseRepositoryImpl[T]) { r.limits = limits }
}

// NewRepository returns a generic repository for desc executing through pool.
func NewRepository[T any](pool *database.Pool, desc Descriptor[T], opts ...Option[T]) Repository[T] {
	r := &baseRepositoryImpl[T]{pool: pool, desc: desc, limits: types.DefaultLimitRange()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *baseRepositoryImpl[T]) Table() string { return r.desc.Table }

func (r *baseRepositoryImpl[T]) Builder() (*sqlbuilder.Builder, error) {
	d := r.pool.Dialect()
	if d == nil {
		return nil, database.ErrNotConnected
	}
	return sqlbuilder.New(d), nil
}

func (r *baseRepositoryImpl[T]) selectStmt(q Query) sqlbuilder.SelectStmt {
	return sqlbuilder.SelectStmt{
		Table:   r.desc.Table,
		Columns: r.desc.Columns,
		Joins:   r.desc.Joins,
		Filter:  q.Filter,
		Where:   q.Where,
		Group:   q.Group,
		Having:  q.Having,
		Order:   q.Order,
		Limit:   q.Limit,
	}
}

func (r *baseRepositoryImpl[T]) GetEntities(ctx context.Context, q Query) ([]T, error) {
	rows, err := r.selectRows(ctx, q.Conn, r.selectStmt(q))
	if err != nil {
		return nil, err
	}
	return r.parse(rows)
}

func (r *baseRepositoryImpl[T]) GetEntity(ctx context.Context, q Query) (T, error) {
	var zero T
	q.Limit = 1
	items, err := r.GetEntities(ctx, q)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrNotFound
	}
	return items[0], nil
}

func (r *baseRepositoryImpl[T]) CountEntities(ctx context.Context, q Query) (int64, error) {
	b, err := r.Builder()
	if err != nil {
		return 0, err
	}
	query, args, err := b.Count(r.selectStmt(q))
	if err != nil {
		return 0, err
	}
	rows, err := r.pool.Query(ctx, q.Conn, query, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Int64("count")
}

func (r *baseRepositoryImpl[T]) selectRows(ctx context.Context, conn *database.Conn, stmt sqlbuilder.SelectStmt) ([]types.Row, error) {
	b, err := r.Builder()
	if err != nil {
		return nil, err
	}
	query, args, err := b.Select(stmt)
	if err != nil {
		return nil, err
	}
	return r.pool.Query(ctx, conn, query, args...)
}

func (r *baseRepositoryImpl[T]) parse(rows []types.Row) ([]T, error) {
	if r.desc.Parser == nil {
		return nil, ErrMissingParser
	}
	items := make([]T, 0, len(rows))
	for i, row := range rows {
		item, err := r.desc.Parser(row)
		if err != nil {
			return nil, fmt.Errorf("parse %s row %d: %w", r.desc.Table, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *baseRepositoryImpl[T]) CreateEntities(ctx context.Context, in Insert) (Result, error) {
	b, err := r.Builder()
	if err != nil {
		return Result{}, err
	}
	query, args, err := b.Insert(sqlbuilder.InsertStmt{
		Table:               r.desc.Table,
		Entities:            in.Entities,
		Ignore:              in.Ignore,
		DuplicateKeyColumns: in.DuplicateKeyColumns,
		ConflictKeys:        in.ConflictKeys,
		Returning:           in.Returning,
		Strict:              in.Strict,
	})
	if err != nil {
		return Result{}, err
	}
	if cols, uniform := sqlbuilder.InsertColumns(in.Entities); !uniform {
		r.pool.Logger().Warn("Insert batch rows have differing columns, using the first row's",
			"table", r.desc.Table, "columns", strings.Join(cols, ","), "rows", len(in.Entities))
	}

	if len(in.Returning) > 0 {
		rows, err := r.pool.Query(ctx, in.Conn, query, args...)
		if err != nil {
			return Result{}, err
		}
		return Result{AffectedRows: int64(len(rows)), Returned: rows}, nil
	}
	res, err := r.pool.Exec(ctx, in.Conn, query, args...)
	if err != nil {
		return Result{}, err
	}
	return Result{InsertID: res.InsertID, AffectedRows: res.AffectedRows}, nil
}

func (r *baseRepositoryImpl[T]) UpdateEntities(ctx context.Context, in Update) (Result, error) {
	b, err := r.Builder()
	if err != nil {
		return Result{}, err
	}
	query, args, err := b.Update(sqlbuilder.UpdateStmt{
		Table:  r.desc.Table,
		Set:    in.Set,
		Filter: in.Filter,
		Where:  in.Where,
	})
	if err != nil {
		return Result{}, err
	}
	return r.exec(ctx, in.Conn, query, args)
}

func (r *baseRepositoryImpl[T]) DeleteEntities(ctx context.Context, in Delete) (Result, error) {
	b, err := r.Builder()
	if err != nil {
		return Result{}, err
	}
	query, args, err := b.Delete(sqlbuilder.DeleteStmt{
		Table:  r.desc.Table,
		Filter: in.Filter,
		Where:  in.Where,
	})
	if err != nil {
		return Result{}, err
	}
	return r.exec(ctx, in.Conn, query, args)
}

func (r *baseRepositoryImpl[T]) TruncateEntities(ctx context.Context, conn *database.Conn) error {
	b, err := r.Builder()
	if err != nil {
		return err
	}
	query, err := b.Truncate(r.desc.Table)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, conn, query)
	return err
}

func (r *baseRepositoryImpl[T]) exec(ctx context.Context, conn *database.Conn, query string, args []any) (Result, error) {
	res, err := r.pool.Exec(ctx, conn, query, args...)
	if err != nil {
		return Result{}, err
	}
	return Result{AffectedRows: res.AffectedRows}, nil
}

// Page returns one page ordered by the request's sort keys. A cursor is
// decoded before anything runs, so a bad cursor never reaches the database.
// NextCursor encodes the last row's sort key values and is only set when the
// page came back full.
func (r *baseRepositoryImpl[T]) Page(ctx context.Context, q Query, page *types.PageRequest) (*types.Page[T], error) {
	if page == nil || len(page.SortKeys) == 0 {
		return nil, ErrNoSortKey
	}
	if r.desc.Codec == nil {
		return nil, ErrNoCodec
	}

	stmt := r.selectStmt(q)
	if page.HasCursor() {
		after, err := r.decodeCursor(page)
		if err != nil {
			return nil, err
		}
		stmt.After = after
	}

	stmt.Order = make([]types.OrderBy, len(page.SortKeys))
	for i, key := range page.SortKeys {
		stmt.Order[i] = types.OrderBy{Column: key, Desc: page.Desc}
	}
	stmt.KeyColumns = page.SortKeys
	limit := r.limits.Clamp(page.Limit)
	stmt.Limit = limit

	rows, err := r.selectRows(ctx, q.Conn, stmt)
	if err != nil {
		return nil, err
	}
	items, err := r.parse(rows)
	if err != nil {
		return nil, err
	}

	out := &types.Page[T]{Items: items, Limit: limit}
	if len(rows) == limit {
		out.NextCursor, err = r.encodeCursor(rows[len(rows)-1], page.SortKeys)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *baseRepositoryImpl[T]) decodeCursor(page *types.PageRequest) (*sqlbuilder.Keyset, error) {
	ids, err := r.desc.Codec.Decode(page.Cursor)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(page.SortKeys) {
		return nil, &hashid.InvalidIDError{Family: r.desc.Codec.Family(), ID: page.Cursor}
	}
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return &sqlbuilder.Keyset{Columns: page.SortKeys, Values: values, Desc: page.Desc}, nil
}

func (r *baseRepositoryImpl[T]) encodeCursor(row types.Row, keys []string) (string, error) {
	values := make([]int64, len(keys))
	for i, key := range keys {
		v, err := row.Int64(sqlbuilder.KeyAlias(i))
		if err != nil {
			return "", fmt.Errorf("sort key %s: %w", key, err)
		}
		values[i] = v
	}
	return r.desc.Codec.Encode(values...)
}
