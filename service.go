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

package gamedb

import (
	"context"

	"github.com/tomoncle/gamedb/database"
	"github.com/tomoncle/gamedb/hashid"
	"github.com/tomoncle/gamedb/repository"
	"github.com/tomoncle/gamedb/types"
)

// Service exposes an entity repository by public id: raw primary keys go
// out encoded with the entity family's codec and come back the same way.
type Service[T any] struct {
	repo     repository.Repository[T]
	codec    *hashid.Codec
	idColumn string
}

// NewService returns a Service over repo whose primary key is idColumn, a
// qualified column such as "characters.id".
func NewService[T any](repo repository.Repository[T], codec *hashid.Codec, idColumn string) *Service[T] {
	return &Service[T]{repo: repo, codec: codec, idColumn: idColumn}
}

func (s *Service[T]) Repository() repository.Repository[T] { return s.repo }

func (s *Service[T]) Codec() *hashid.Codec { return s.codec }

// PublicID encodes a raw primary key.
func (s *Service[T]) PublicID(id int64) (string, error) {
	return s.codec.EncodeID(id)
}

// RawID decodes a public id; malformed ids fail with *hashid.InvalidIDError.
func (s *Service[T]) RawID(publicID string) (int64, error) {
	return s.codec.DecodeID(publicID)
}

func (s *Service[T]) byID(publicID string) (types.Filter, error) {
	id, err := s.RawID(publicID)
	if err != nil {
		return nil, err
	}
	return types.Filter{s.idColumn: id}, nil
}

// Get returns one entity by public id.
func (s *Service[T]) Get(ctx context.Context, publicID string) (T, error) {
	filter, err := s.byID(publicID)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.repo.GetEntity(ctx, repository.Query{Filter: filter})
}

// List pages through entities matching filter in primary key order.
func (s *Service[T]) List(ctx context.Context, filter types.Filter, cursor string, limit int) (*types.Page[T], error) {
	return s.repo.Page(ctx, repository.Query{Filter: filter}, types.NewPageRequest(s.idColumn, cursor, limit))
}

// Count returns how many entities match filter.
func (s *Service[T]) Count(ctx context.Context, filter types.Filter) (int64, error) {
	return s.repo.CountEntities(ctx, repository.Query{Filter: filter})
}

// Save inserts one entity and returns its public id.
func (s *Service[T]) Save(ctx context.Context, values types.Values) (string, error) {
	return s.SaveWithConn(ctx, nil, values)
}

// SaveWithConn is Save on a caller-owned connection.
func (s *Service[T]) SaveWithConn(ctx context.Context, conn *database.Conn, values types.Values) (string, error) {
	res, err := s.repo.CreateEntities(ctx, repository.Insert{Entities: []types.Values{values}, Conn: conn})
	if err != nil {
		return "", err
	}
	return s.PublicID(res.InsertID)
}

// SaveAll inserts a batch; every entity must carry the same columns.
func (s *Service[T]) SaveAll(ctx context.Context, values ...types.Values) (int64, error) {
	res, err := s.repo.CreateEntities(ctx, repository.Insert{Entities: values, Strict: true})
	return res.AffectedRows, err
}

// SaveOrUpdate inserts values, overwriting fields on a duplicate of
// duplicateKeys.
func (s *Service[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, values ...types.Values) (int64, error) {
	res, err := s.repo.CreateEntities(ctx, repository.Insert{
		Entities:            values,
		DuplicateKeyColumns: fields,
		ConflictKeys:        duplicateKeys,
		Strict:              true,
	})
	return res.AffectedRows, err
}

// Update applies set to the entity with the given public id.
func (s *Service[T]) Update(ctx context.Context, publicID string, set types.Values) (int64, error) {
	return s.UpdateWithConn(ctx, nil, publicID, set)
}

// UpdateWithConn is Update on a caller-owned connection.
func (s *Service[T]) UpdateWithConn(ctx context.Context, conn *database.Conn, publicID string, set types.Values) (int64, error) {
	filter, err := s.byID(publicID)
	if err != nil {
		return 0, err
	}
	res, err := s.repo.UpdateEntities(ctx, repository.Update{Filter: filter, Set: set, Conn: conn})
	return res.AffectedRows, err
}

// Delete removes the entity with the given public id.
func (s *Service[T]) Delete(ctx context.Context, publicID string) (int64, error) {
	return s.DeleteWithConn(ctx, nil, publicID)
}

// DeleteWithConn is Delete on a caller-owned connection.
func (s *Service[T]) DeleteWithConn(ctx context.Context, conn *database.Conn, publicID string) (int64, error) {
	filter, err := s.byID(publicID)
	if err != nil {
		return 0, err
	}
	res, err := s.repo.DeleteEntities(ctx, repository.Delete{Filter: filter, Conn: conn})
	return res.AffectedRows, err
}
