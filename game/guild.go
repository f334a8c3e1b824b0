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
	"time"

	"github.com/tomoncle/gamedb"
	"github.com/tomoncle/gamedb/database"
	"github.com/tomoncle/gamedb/hashid"
	"github.com/tomoncle/gamedb/repository"
	"github.com/tomoncle/gamedb/types"
)

type Guild struct {
	ID          int64     `json:"-"`
	Name        string    `json:"name"`
	LeaderID    int64     `json:"-"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func parseGuild(row types.Row) (Guild, error) {
	var g Guild
	var err error
	if g.ID, err = row.Int64("id"); err != nil {
		return g, err
	}
	if g.Name, err = row.String("name"); err != nil {
		return g, err
	}
	if g.LeaderID, err = row.Int64("leader_id"); err != nil {
		return g, err
	}
	if g.MemberCount, err = row.Int("member_count"); err != nil {
		return g, err
	}
	g.CreatedAt, err = row.Time("created_at")
	return g, err
}

func GuildDescriptor(codec *hashid.Codec) repository.Descriptor[Guild] {
	return repository.Descriptor[Guild]{
		Table: "guilds",
		Columns: []types.Fragment{
			types.SQL("guilds.id"),
			types.SQL("guilds.name"),
			types.SQL("guilds.leader_id"),
			types.SQL("guilds.member_count"),
			types.SQL("guilds.created_at"),
		},
		Parser: parseGuild,
		Codec:  codec,
	}
}

// GuildService manages guilds and their rosters. Roster changes touch both
// tables on one connection; member_count is kept in step with the
// characters pointing at the guild.
type GuildService struct {
	*gamedb.Service[Guild]
	pool       *database.Pool
	members    repository.Repository[Character]
	characters *hashid.Codec
}

func NewGuildService(pool *database.Pool, codecs *hashid.Registry, opts ...repository.Option[Guild]) (*GuildService, error) {
	guilds, err := codecs.Codec(hashid.FamilyGuild)
	if err != nil {
		return nil, err
	}
	chars, err := codecs.Codec(hashid.FamilyCharacter)
	if err != nil {
		return nil, err
	}
	repo := repository.NewRepository(pool, GuildDescriptor(guilds), opts...)
	return &GuildService{
		Service:    gamedb.NewService(repo, guilds, "guilds.id"),
		pool:       pool,
		members:    repository.NewRepository(pool, CharacterDescriptor(chars)),
		characters: chars,
	}, nil
}

// Create founds a guild led by leader, a guildless character's public id,
// and returns the guild's public id.
func (s *GuildService) Create(ctx context.Context, name, leader string) (string, error) {
	name, err := validName(name)
	if err != nil {
		return "", err
	}
	leaderID, err := s.characters.DecodeID(leader)
	if err != nil {
		return "", err
	}

	var publicID string
	err = s.pool.WithConn(ctx, func(conn *database.Conn) error {
		c, err := s.members.GetEntity(ctx, repository.Query{
			Filter: types.Filter{"characters.id": leaderID},
			Conn:   conn,
		})
		if err != nil {
			return err
		}
		if c.GuildID != 0 {
			return ErrAlreadyInGuild
		}
		publicID, err = s.SaveWithConn(ctx, conn, types.Values{
			"name":         name,
			"leader_id":    leaderID,
			"member_count": 0,
		})
		if database.IsDuplicateKey(err) {
			return ErrNameTaken
		}
		if err != nil {
			return err
		}
		return s.join(ctx, conn, publicID, leaderID)
	})
	return publicID, err
}

// AddMember puts a guildless character into the guild.
func (s *GuildService) AddMember(ctx context.Context, guild, character string) error {
	charID, err := s.characters.DecodeID(character)
	if err != nil {
		return err
	}
	guildID, err := s.RawID(guild)
	if err != nil {
		return err
	}
	return s.pool.WithConn(ctx, func(conn *database.Conn) error {
		n, err := s.Repository().CountEntities(ctx, repository.Query{
			Filter: types.Filter{"guilds.id": guildID},
			Conn:   conn,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return s.join(ctx, conn, guild, charID)
	})
}

func (s *GuildService) join(ctx context.Context, conn *database.Conn, guild string, charID int64) error {
	guildID, err := s.RawID(guild)
	if err != nil {
		return err
	}
	res, err := s.members.UpdateEntities(ctx, repository.Update{
		Filter: types.Filter{"characters.id": charID, "characters.guild_id": types.IsNull()},
		Set:    types.Values{"guild_id": guildID},
		Conn:   conn,
	})
	if err != nil {
		return err
	}
	if res.AffectedRows == 0 {
		return s.whyNot(ctx, conn, charID, ErrAlreadyInGuild)
	}
	_, err = s.UpdateWithConn(ctx, conn, guild, types.Values{
		"member_count": types.Raw(types.SQL("member_count + 1")),
	})
	return err
}

// RemoveMember takes a character out of the guild.
func (s *GuildService) RemoveMember(ctx context.Context, guild, character string) error {
	charID, err := s.characters.DecodeID(character)
	if err != nil {
		return err
	}
	guildID, err := s.RawID(guild)
	if err != nil {
		return err
	}
	return s.pool.WithConn(ctx, func(conn *database.Conn) error {
		res, err := s.members.UpdateEntities(ctx, repository.Update{
			Filter: types.Filter{"characters.id": charID, "characters.guild_id": guildID},
			Set:    types.Values{"guild_id": nil},
			Conn:   conn,
		})
		if err != nil {
			return err
		}
		if res.AffectedRows == 0 {
			return s.whyNot(ctx, conn, charID, ErrNotInGuild)
		}
		_, err = s.UpdateWithConn(ctx, conn, guild, types.Values{
			"member_count": types.Raw(types.SQL("member_count - 1")),
		})
		return err
	})
}

// whyNot tells a missing character apart from one in the wrong guild state.
func (s *GuildService) whyNot(ctx context.Context, conn *database.Conn, charID int64, otherwise error) error {
	n, err := s.members.CountEntities(ctx, repository.Query{
		Filter: types.Filter{"characters.id": charID},
		Conn:   conn,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return otherwise
}

// Members pages through a guild's roster in id order.
func (s *GuildService) Members(ctx context.Context, guild, cursor string, limit int) (*types.Page[Character], error) {
	guildID, err := s.RawID(guild)
	if err != nil {
		return nil, err
	}
	return s.members.Page(ctx,
		repository.Query{Filter: types.Filter{"characters.guild_id": guildID}},
		types.NewPageRequest("characters.id", cursor, limit))
}

// ByMinMembers pages through guilds with at least min members.
func (s *GuildService) ByMinMembers(ctx context.Context, min int, cursor string, limit int) (*types.Page[Guild], error) {
	return s.List(ctx, types.Filter{"guilds.member_count": types.Gte(min)}, cursor, limit)
}

func (s *GuildService) Rename(ctx context.Context, guild, name string) error {
	name, err := validName(name)
	if err != nil {
		return err
	}
	n, err := s.Update(ctx, guild, types.Values{"name": name})
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

// Disband releases every member and deletes the guild. It returns how many
// characters were released.
func (s *GuildService) Disband(ctx context.Context, guild string) (int64, error) {
	guildID, err := s.RawID(guild)
	if err != nil {
		return 0, err
	}
	var released int64
	err = s.pool.WithConn(ctx, func(conn *database.Conn) error {
		res, err := s.members.UpdateEntities(ctx, repository.Update{
			Filter: types.Filter{"characters.guild_id": guildID},
			Set:    types.Values{"guild_id": nil},
			Conn:   conn,
		})
		if err != nil {
			return err
		}
		released = res.AffectedRows
		n, err := s.DeleteWithConn(ctx, conn, guild)
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
	return released, err
}
