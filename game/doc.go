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

// Package game holds the entities of the game database and the services
// that read and write them by public id.
//
// Characters, guilds and maps each have a Descriptor built from constant
// SQL fragments and a typed row parser. Services wrap gamedb.Service with
// the queries the game server needs: leaderboards, guild rosters, maps a
// character may enter. Raw primary keys never leave this package; every id
// and cursor handed out is a hashid of the entity's family.
package game
