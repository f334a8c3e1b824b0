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
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidName    = errors.New("game: name must be 3 to 32 characters")
	ErrUnknownClass   = errors.New("game: unknown character class")
	ErrNameTaken      = errors.New("game: name already taken")
	ErrAlreadyInGuild = errors.New("game: character already belongs to a guild")
	ErrNotInGuild     = errors.New("game: character is not a member of the guild")
)

// Classes a character may be created with.
var Classes = []string{"cleric", "mage", "ranger", "rogue", "warrior"}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 32 {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

func validClass(class string) (string, error) {
	class = strings.ToLower(strings.TrimSpace(class))
	for _, c := range Classes {
		if c == class {
			return class, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownClass, class)
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
