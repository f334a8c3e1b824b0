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

package database

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Host = "db.local"
	cfg.Port = 3306
	cfg.Username = "game"
	cfg.Password = "p@ss:word"
	cfg.DBName = "world"
	cfg.Charset = ""

	mc := mysqlConfig(cfg)
	assert.Equal(t, "db.local:3306", mc.Addr)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, "utf8mb4", mc.Params["charset"])
	assert.Equal(t, cfg.ReadTimeout, mc.ReadTimeout)
	assert.Contains(t, mc.FormatDSN(), "@tcp(db.local:3306)/world?")
}

func TestPostgresDSN(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Type = "postgres"
	cfg.Host = "pg.local"
	cfg.Port = 5432
	cfg.Username = "game"
	cfg.Password = "p@ss/word"
	cfg.DBName = "world"
	cfg.ConnectTimeout = 7 * time.Second

	u, err := url.Parse(postgresDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "pg.local:5432", u.Host)
	assert.Equal(t, "/world", u.Path)
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss/word", pass)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "7", u.Query().Get("connect_timeout"))
}

func TestReconnectSwapsHandle(t *testing.T) {
	ctx := context.Background()
	manager, err := Open(ctx, sqliteConfig(t, 2), NopLogger())
	require.NoError(t, err)
	defer manager.Disconnect()

	before := manager.GetDB()
	require.NoError(t, manager.Reconnect(ctx))
	after := manager.GetDB()
	assert.NotSame(t, before, after)
	assert.Same(t, after, manager.Pool().DB())

	_, err = manager.Pool().Exec(ctx, nil, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	require.NoError(t, manager.Connect(ctx))
	assert.Same(t, after, manager.GetDB(), "connect on an open manager is a no-op")
}

func TestHealthLoopStopsOnDisconnect(t *testing.T) {
	cfg := sqliteConfig(t, 1)
	cfg.HealthCheckInterval = 5 * time.Millisecond
	logger := &recordingLogger{}
	manager, err := Open(context.Background(), cfg, logger)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- manager.Disconnect() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect did not return")
	}
	assert.Nil(t, manager.GetDB())
	assert.False(t, manager.HealthCheck(context.Background()).Healthy)
	assert.NoError(t, manager.Disconnect())
}

func TestOpenFailureLeavesNothingOpen(t *testing.T) {
	cfg := sqliteConfig(t, 1)
	cfg.DBName = "file:/nonexistent/dir/x.db?mode=ro"
	_, err := Open(context.Background(), cfg, NopLogger())
	assert.Error(t, err)

	cfg = sqliteConfig(t, 1)
	cfg.Type = "oracle"
	_, err = Open(context.Background(), cfg, NopLogger())
	assert.ErrorContains(t, err, "unsupported database type")
}
