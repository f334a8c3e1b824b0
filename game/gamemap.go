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

package game

import (
	"context"

	"github.com/tomoncle/gamedb"
	"github.com/tomoncle/gamedb/database"
	"github.com/tomoncle/gamedb/hashid"
	"github.com/tomoncle/gamedb/repository"
	"github.com/tomoncle/gamedb/types"
)

// GameMap is a zone characters can enter. Active is stored in a BIT(1)
// column on MySQL.
type GameMap struct {
	ID         int64  `json:"-"`
	Name       string `json:"name"`
	MinLevel   int    `json:"min_level"`
	MaxPlayers int    `json:"max_players"`
	Active     bool   `json:"active"`
}

func parseGameMap(row types.Row) (GameMap, error) {
	var m GameMap
	var err error
	if m.ID, err = row.Int64("id"); err != nil {
		return m, err
	}
	if m.Name, err = row.String("name"); err != nil {
		return m, err
	}
	if m.MinLevel, err = row.Int("min_level"); err != nil {
		return m, err
	}
	if m.MaxPlayers, err = row.Int("max_players"); err != nil {
		return m, err
	}
	m.Active, err = row.Bool("active")
	return m, err
}

func MapDescriptor(codec *hashid.Codec) repository.Descriptor[GameMap] {
	return repository.Descriptor[GameMap]{
		Table: "maps",
		Columns: []types.Fragment{
			types.SQL("maps.id"),
			types.SQL("maps.name"),
			types.SQL("maps.min_level"),
			types.SQL("maps.max_players"),
			types.SQL("maps.active"),
		},
		Parser: parseGameMap,
		Codec:  codec,
	}
}

type NewMap struct {
	Name       string
	MinLevel   int
	MaxPlayers int
	Active     bool
}

type MapService struct {
	*gamedb.Service[GameMap]
}

func NewMapService(pool *database.Pool, codecs *hashid.Registry, opts ...repository.Option[GameMap]) (*MapService, error) {
	codec, err := codecs.Codec(hashid.FamilyMap)
	if err != nil {
		return nil, err
	}
	repo := repository.NewRepository(pool, MapDescriptor(codec), opts...)
	return &MapService{Service: gamedb.NewService(repo, codec, "maps.id")}, nil
}

func (s *MapService) Create(ctx context.Context, in NewMap) (string, error) {
	name, err := validName(in.Name)
	if err != nil {
		return "", err
	}
	if in.MinLevel < 1 {
		in.MinLevel = 1
	}
	id, err := s.Save(ctx, types.Values{
		"name":        name,
		"min_level":   in.MinLevel,
		"max_players": in.MaxPlayers,
		"active":      bit(in.Active),
	})
	if database.IsDuplicateKey(err) {
		return "", ErrNameTaken
	}
	return id, err
}

// Import upserts maps by name, overwriting level and capacity of maps that
// already exist.
func (s *MapService) Import(ctx context.Context, maps ...NewMap) (int64, error) {
	values := make([]types.Values, 0, len(maps))
	for _, m := range maps {
		name, err := validName(m.Name)
		if err != nil {
			return 0, err
		}
		values = append(values, types.Values{
			"name":        name,
			"min_level":   m.MinLevel,
			"max_players": m.MaxPlayers,
			"active":      bit(m.Active),
		})
	}
	return s.SaveOrUpdate(ctx, []string{"min_level", "max_players", "active"}, []string{"name"}, values...)
}

func (s *MapService) ByName(ctx context.Context, name string) (GameMap, error) {
	return s.Repository().GetEntity(ctx, repository.Query{Filter: types.Filter{"maps.name": name}})
}

// Active pages through open maps.
func (s *MapService) Active(ctx context.Context, cursor string, limit int) (*types.Page[GameMap], error) {
	return s.List(ctx, types.Filter{"maps.active": 1}, cursor, limit)
}

// ForLevel pages through open maps a character of the given level may enter.
func (s *MapService) ForLevel(ctx context.Context, level int, cursor string, limit int) (*types.Page[GameMap], error) {
	return s.List(ctx, types.Filter{
		"maps.active":    1,
		"maps.min_level": types.Lte(level),
	}, cursor, limit)
}

func (s *MapService) SetActive(ctx context.Context, id string, active bool) error {
	n, err := s.Update(ctx, id, types.Values{"active": bit(active)})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Reset empties the maps table.
func (s *MapService) Reset(ctx context.Context) error {
	return s.Repository().TruncateEntities(ctx, nil)
}
