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
	"errors"
	"time"

	"github.com/tomoncle/gamedb"
	"github.com/tomoncle/gamedb/database"
	"github.com/tomoncle/gamedb/hashid"
	"github.com/tomoncle/gamedb/repository"
	"github.com/tomoncle/gamedb/types"
)

// Character is a playable character. GuildID is zero and GuildName empty
// for characters outside any guild.
type Character struct {
	ID        int64     `json:"-"`
	AccountID int64     `json:"-"`
	Name      string    `json:"name"`
	Class     string    `json:"class"`
	Level     int       `json:"level"`
	GuildID   int64     `json:"-"`
	GuildName string    `json:"guild_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var characterColumns = []types.Fragment{
	types.SQL("characters.id"),
	types.SQL("characters.account_id"),
	types.SQL("characters.name"),
	types.SQL("characters.class"),
	types.SQL("characters.level"),
	types.SQL("characters.guild_id"),
	types.SQL("characters.created_at"),
	types.SQL("guilds.name AS guild_name"),
}

var characterJoins = []types.Fragment{
	types.SQL("LEFT JOIN guilds ON guilds.id = characters.guild_id"),
}

func parseCharacter(row types.Row) (Character, error) {
	var c Character
	var err error
	if c.ID, err = row.Int64("id"); err != nil {
		return c, err
	}
	if c.AccountID, err = row.Int64("account_id"); err != nil {
		return c, err
	}
	if c.Name, err = row.String("name"); err != nil {
		return c, err
	}
	if c.Class, err = row.String("class"); err != nil {
		return c, err
	}
	if c.Level, err = row.Int("level"); err != nil {
		return c, err
	}
	if c.GuildID, err = row.Int64("guild_id"); err != nil {
		return c, err
	}
	if c.GuildName, err = row.String("guild_name"); err != nil {
		return c, err
	}
	c.CreatedAt, err = row.Time("created_at")
	return c, err
}

// CharacterDescriptor reads characters joined with their guild's name.
func CharacterDescriptor(codec *hashid.Codec) repository.Descriptor[Character] {
	return repository.Descriptor[Character]{
		Table:   "characters",
		Columns: characterColumns,
		Joins:   characterJoins,
		Parser:  parseCharacter,
		Codec:   codec,
	}
}

// NewCharacter is the input of CharacterService.Create. Account is the
// owning account's public id.
type NewCharacter struct {
	Account string
	Name    string
	Class   string
}

// CharacterSearch narrows CharacterService.Search. Zero fields do not
// filter; NamePrefix is used as the start of a LIKE pattern as given.
type CharacterSearch struct {
	NamePrefix string
	Class      string
	MinLevel   int
	MaxLevel   int
	Guild      string
	Cursor     string
	Limit      int
}

type CharacterService struct {
	*gamedb.Service[Character]
	accounts *hashid.Codec
	guilds   *hashid.Codec
}

func NewCharacterService(pool *database.Pool, codecs *hashid.Registry, opts ...repository.Option[Character]) (*CharacterService, error) {
	chars, err := codecs.Codec(hashid.FamilyCharacter)
	if err != nil {
		return nil, err
	}
	accounts, err := codecs.Codec(hashid.FamilyAccount)
	if err != nil {
		return nil, err
	}
	guilds, err := codecs.Codec(hashid.FamilyGuild)
	if err != nil {
		return nil, err
	}
	repo := repository.NewRepository(pool, CharacterDescriptor(chars), opts...)
	return &CharacterService{
		Service:  gamedb.NewService(repo, chars, "characters.id"),
		accounts: accounts,
		guilds:   guilds,
	}, nil
}

// Create inserts a level one character and returns its public id.
func (s *CharacterService) Create(ctx context.Context, in NewCharacter) (string, error) {
	name, err := validName(in.Name)
	if err != nil {
		return "", err
	}
	class, err := validClass(in.Class)
	if err != nil {
		return "", err
	}
	account, err := s.accounts.DecodeID(in.Account)
	if err != nil {
		return "", err
	}
	id, err := s.Save(ctx, types.Values{
		"account_id": account,
		"name":       name,
		"class":      class,
		"level":      1,
	})
	if database.IsDuplicateKey(err) {
		return "", ErrNameTaken
	}
	return id, err
}

func (s *CharacterService) ByName(ctx context.Context, name string) (Character, error) {
	return s.Repository().GetEntity(ctx, repository.Query{Filter: types.Filter{"characters.name": name}})
}

// ByAccount pages through an account's characters.
func (s *CharacterService) ByAccount(ctx context.Context, account, cursor string, limit int) (*types.Page[Character], error) {
	id, err := s.accounts.DecodeID(account)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, types.Filter{"characters.account_id": id}, cursor, limit)
}

func (s *CharacterService) Search(ctx context.Context, in CharacterSearch) (*types.Page[Character], error) {
	filter := types.Filter{}
	if in.NamePrefix != "" {
		filter["characters.name"] = types.Like(in.NamePrefix + "%")
	}
	if in.Class != "" {
		filter["characters.class"] = in.Class
	}
	switch {
	case in.MinLevel > 0 && in.MaxLevel > 0:
		filter["characters.level"] = types.Between(in.MinLevel, in.MaxLevel)
	case in.MinLevel > 0:
		filter["characters.level"] = types.Gte(in.MinLevel)
	case in.MaxLevel > 0:
		filter["characters.level"] = types.Lte(in.MaxLevel)
	}
	if in.Guild != "" {
		guild, err := s.guilds.DecodeID(in.Guild)
		if err != nil {
			return nil, err
		}
		filter["characters.guild_id"] = guild
	}
	return s.List(ctx, filter, in.Cursor, in.Limit)
}

// Leaderboard pages characters from the highest level down, ties broken by
// the newest id. An empty class ranks every class.
func (s *CharacterService) Leaderboard(ctx context.Context, class, cursor string, limit int) (*types.Page[Character], error) {
	q := repository.Query{}
	if class != "" {
		q.Filter = types.Filter{"characters.class": class}
	}
	return s.Repository().Page(ctx, q, &types.PageRequest{
		SortKeys: []string{"characters.level", "characters.id"},
		Cursor:   cursor,
		Limit:    limit,
		Desc:     true,
	})
}

// LevelUp raises a character one level in place and returns it.
func (s *CharacterService) LevelUp(ctx context.Context, id string) (Character, error) {
	n, err := s.Update(ctx, id, types.Values{"level": types.Raw(types.SQL("level + 1"))})
	if err != nil {
		return Character{}, err
	}
	if n == 0 {
		return Character{}, repository.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Rename changes a character's name.
func (s *CharacterService) Rename(ctx context.Context, id, name string) error {
	name, err := validName(name)
	if err != nil {
		return err
	}
	n, err := s.Update(ctx, id, types.Values{"name": name})
	switch {
	case database.IsDuplicateKey(err):
		return ErrNameTaken
	case err != nil:
		return err
	case n == 0:
		return repository.ErrNotFound
	}
	return nil
}

// Remove deletes a character that is not in a guild.
func (s *CharacterService) Remove(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.GuildID != 0 {
		return ErrAlreadyInGuild
	}
	_, err = s.Delete(ctx, id)
	return err
}

// IsNotFound reports whether err means the entity does not exist, either
// because no row matched or because its public id does not decode.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, hashid.ErrInvalidID)
}
