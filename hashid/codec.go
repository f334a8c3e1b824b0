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

package hashid

import (
	"fmt"
	"sort"
	"strings"

	hashids "github.com/speps/go-hashids/v2"
)

// Family names a group of entities sharing one salt.
type Family string

const (
	FamilyAccount   Family = "account"
	FamilyCharacter Family = "character"
	FamilyGuild     Family = "guild"
	FamilyMap       Family = "map"
	FamilyItem      Family = "item"
	FamilyLog       Family = "log"
)

func (f Family) String() string { return string(f) }

// FamilyConfig is the salt, alphabet and minimum cursor length of a family.
type FamilyConfig struct {
	Salt      string `yaml:"salt" json:"salt"`
	Alphabet  string `yaml:"alphabet" json:"alphabet"`
	MinLength int    `yaml:"min_length" json:"min_length"`
}

func (c FamilyConfig) Validate() error {
	if strings.TrimSpace(c.Salt) == "" {
		return ErrEmptySalt
	}
	if c.MinLength < 0 {
		return fmt.Errorf("hashid: negative min length %d", c.MinLength)
	}
	return nil
}

// Codec encodes and decodes ids for one family.
type Codec struct {
	family Family
	h      *hashids.HashID
}

func NewCodec(family Family, cfg FamilyConfig) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("family %s: %w", family, err)
	}
	data := hashids.NewData()
	data.Salt = cfg.Salt
	data.MinLength = cfg.MinLength
	if cfg.Alphabet != "" {
		data.Alphabet = cfg.Alphabet
	}
	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("family %s: %w", family, err)
	}
	return &Codec{family: family, h: h}, nil
}

func (c *Codec) Family() Family { return c.family }

// Encode turns one or more non-negative key values into a cursor.
func (c *Codec) Encode(ids ...int64) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("hashid: nothing to encode for %s", c.family)
	}
	for _, id := range ids {
		if id < 0 {
			return "", fmt.Errorf("hashid: cannot encode negative %s id %d", c.family, id)
		}
	}
	return c.h.EncodeInt64(ids)
}

// Decode reverses Encode. Strings that were not produced by this codec fail
// with an *InvalidIDError; a result is only accepted if it re-encodes to the
// exact input.
func (c *Codec) Decode(cursor string) ([]int64, error) {
	if cursor == "" {
		return nil, &InvalidIDError{Family: c.family, ID: cursor}
	}
	ids, err := c.h.DecodeInt64WithError(cursor)
	if err != nil {
		return nil, &InvalidIDError{Family: c.family, ID: cursor, Cause: err}
	}
	if len(ids) == 0 {
		return nil, &InvalidIDError{Family: c.family, ID: cursor}
	}
	again, err := c.h.EncodeInt64(ids)
	if err != nil || again != cursor {
		return nil, &InvalidIDError{Family: c.family, ID: cursor, Cause: err}
	}
	return ids, nil
}

func (c *Codec) EncodeID(id int64) (string, error) { return c.Encode(id) }

// DecodeID decodes a cursor that must carry exactly one value.
func (c *Codec) DecodeID(cursor string) (int64, error) {
	ids, err := c.Decode(cursor)
	if err != nil {
		return 0, err
	}
	if len(ids) != 1 {
		return 0, &InvalidIDError{Family: c.family, ID: cursor}
	}
	return ids[0], nil
}

// Registry holds one codec per family, built and validated once at startup.
type Registry struct {
	codecs map[Family]*Codec
}

func NewRegistry(families map[Family]FamilyConfig) (*Registry, error) {
	r := &Registry{codecs: make(map[Family]*Codec, len(families))}
	for f, cfg := range families {
		c, err := NewCodec(f, cfg)
		if err != nil {
			return nil, err
		}
		r.codecs[f] = c
	}
	return r, nil
}

func (r *Registry) Codec(f Family) (*Codec, error) {
	c, ok := r.codecs[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, f)
	}
	return c, nil
}

func (r *Registry) Families() []Family {
	out := make([]Family, 0, len(r.codecs))
	for f := range r.codecs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) EncodeID(raw int64, f Family) (string, error) {
	c, err := r.Codec(f)
	if err != nil {
		return "", err
	}
	return c.EncodeID(raw)
}

func (r *Registry) DecodeID(cursor string, f Family) (int64, error) {
	c, err := r.Codec(f)
	if err != nil {
		return 0, err
	}
	return c.DecodeID(cursor)
}
