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
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level  LogLevel
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level LogLevel, msg string, fields []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := map[string]interface{}{}
	for i := 0; i+1 < len(fields); i += 2 {
		m[fmt.Sprint(fields[i])] = fields[i+1]
	}
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: m})
}

func (l *recordingLogger) SetLevel(LogLevel) {}
func (l *recordingLogger) Debug(msg string, fields ...interface{}) {
	l.record(LogLevelDebug, msg, fields)
}
func (l *recordingLogger) Info(msg string, fields ...interface{}) {
	l.record(LogLevelInfo, msg, fields)
}
func (l *recordingLogger) Warn(msg string, fields ...interface{}) {
	l.record(LogLevelWarn, msg, fields)
}
func (l *recordingLogger) Error(msg string, fields ...interface{}) {
	l.record(LogLevelError, msg, fields)
}

func (l *recordingLogger) at(level LogLevel) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

func sqliteConfig(t *testing.T, maxOpen int) *ConnectionConfig {
	t.Helper()
	cfg := DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DBName = filepath.Join(t.TempDir(), "pool.db")
	cfg.MaxOpenConns = maxOpen
	cfg.MaxIdleConns = maxOpen
	cfg.HealthCheckInterval = 0
	cfg.SlowQueryTime = 0
	return cfg
}

func openTestPool(t *testing.T, maxOpen int, opts ...ManagerOption) (*Pool, *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	manager, err := Open(context.Background(), sqliteConfig(t, maxOpen), logger, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Disconnect() })

	pool := manager.Pool()
	_, err = pool.Exec(context.Background(), nil,
		"CREATE TABLE player (id INTEGER PRIMARY KEY, name VARCHAR(32) NOT NULL UNIQUE, level INTEGER NOT NULL, active BIT(1) NOT NULL DEFAULT 1)")
	require.NoError(t, err)
	return pool, logger
}

func TestPoolExecAndQuery(t *testing.T) {
	pool, logger := openTestPool(t, 2)
	ctx := context.Background()

	res, err := pool.Exec(ctx, nil, "INSERT INTO player (name, level) VALUES (?, ?), (?, ?)", "ayla", 90, "bram", 12)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.AffectedRows)
	assert.EqualValues(t, 2, res.InsertID)

	rows, err := pool.Query(ctx, nil, "SELECT id, name, level, active\n\tFROM player\n\tWHERE level >= ?", 90)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ayla", rows[0]["name"])
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, int64(1), rows[0]["active"])
	assert.Zero(t, pool.Outstanding())

	debug := logger.at(LogLevelDebug)
	require.NotEmpty(t, debug)
	last := debug[len(debug)-1]
	assert.Equal(t, "SELECT id, name, level, active FROM player WHERE level >= ?", last.fields["sql"])
	assert.Equal(t, []any{90}, last.fields["values"])
	assert.Contains(t, last.fields, "duration")
}

func TestPoolQueryRejectsDuplicateLabels(t *testing.T) {
	pool, _ := openTestPool(t, 1)
	ctx := context.Background()
	_, err := pool.Exec(ctx, nil, "INSERT INTO player (name, level) VALUES (?, ?)", "ayla", 90)
	require.NoError(t, err)

	_, err = pool.Query(ctx, nil, "SELECT p.id, q.id FROM player p JOIN player q ON q.id = p.id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateColumn)
	assert.Zero(t, pool.Outstanding())

	rows, err := pool.Query(ctx, nil, "SELECT p.id, q.id AS other_id FROM player p JOIN player q ON q.id = p.id")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["other_id"])
}

func TestPoolQueryEmptyResult(t *testing.T) {
	pool, _ := openTestPool(t, 1)

	rows, err := pool.Query(context.Background(), nil, "SELECT id FROM player WHERE level > ?", 1000)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestPoolFailureReleasesAndLogs(t *testing.T) {
	pool, logger := openTestPool(t, 1)

	rows, err := pool.Query(context.Background(), nil, "SELECT * FROM missing_table")
	require.Error(t, err)
	assert.Nil(t, rows)
	assert.Zero(t, pool.Outstanding())

	is, kind := IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, NoTableErr, kind)

	errs := logger.at(LogLevelError)
	require.Len(t, errs, 1)
	assert.Equal(t, "SELECT * FROM missing_table", errs[0].fields["sql"])
	assert.Equal(t, err, errs[0].fields["error"])

	// The single connection must be usable again.
	_, err = pool.Query(context.Background(), nil, "SELECT 1")
	assert.NoError(t, err)
}

func TestPoolDuplicateKeyClassified(t *testing.T) {
	pool, _ := openTestPool(t, 1)
	ctx := context.Background()

	_, err := pool.Exec(ctx, nil, "INSERT INTO player (name, level) VALUES (?, ?)", "ayla", 1)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, nil, "INSERT INTO player (name, level) VALUES (?, ?)", "ayla", 2)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}

func TestPoolCallerOwnedConnection(t *testing.T) {
	pool, _ := openTestPool(t, 2)
	ctx := context.Background()

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pool.Outstanding())

	_, err = pool.Exec(ctx, conn, "INSERT INTO player (name, level) VALUES (?, ?)", "cora", 40)
	require.NoError(t, err)
	rows, err := pool.Query(ctx, conn, "SELECT name FROM player")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.EqualValues(t, 1, pool.Outstanding(), "statements must not release a caller-owned connection")

	require.NoError(t, conn.Release())
	require.NoError(t, conn.Release())
	assert.Zero(t, pool.Outstanding())

	_, err = pool.Query(ctx, conn, "SELECT 1")
	assert.ErrorIs(t, err, ErrConnReleased)
}

func TestPoolIsBounded(t *testing.T) {
	pool, _ := openTestPool(t, 2)
	ctx := context.Background()

	first, err := pool.Acquire(ctx)
	require.NoError(t, err)
	second, err := pool.Acquire(ctx)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 2, pool.Outstanding())

	require.NoError(t, pool.Release(first))
	third, err := pool.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, pool.Release(third))
	require.NoError(t, pool.Release(second))
	assert.Zero(t, pool.Outstanding())
}

func TestPoolConcurrentStatements(t *testing.T) {
	pool, _ := openTestPool(t, 3)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Query(ctx, nil, "SELECT ? AS n", i)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Zero(t, pool.Outstanding())
}

func TestWithConnReleasesOnError(t *testing.T) {
	pool, _ := openTestPool(t, 1)
	boom := errors.New("boom")

	err := pool.WithConn(context.Background(), func(conn *Conn) error {
		assert.EqualValues(t, 1, pool.Outstanding())
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, pool.Outstanding())
}

func TestPoolMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPoolMetrics(reg, "gamedb_test")
	pool, _ := openTestPool(t, 1, WithPoolMetrics(metrics))
	ctx := context.Background()

	_, err := pool.Query(ctx, nil, "SELECT 1")
	require.NoError(t, err)
	_, err = pool.Query(ctx, nil, "SELECT * FROM nowhere")
	require.Error(t, err)

	assert.Zero(t, testutil.ToFloat64(metrics.CheckedOut))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Errors.WithLabelValues("SELECT")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.Duration))
}

func TestStatementTimeout(t *testing.T) {
	cfg := sqliteConfig(t, 1)
	cfg.StatementTimeout = time.Nanosecond
	manager, err := Open(context.Background(), cfg, NopLogger())
	require.NoError(t, err)
	defer manager.Disconnect()

	_, err = manager.Pool().Query(context.Background(), nil,
		"WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM c WHERE x < 1000000) SELECT COUNT(*) FROM c")
	assert.Error(t, err)
	assert.Zero(t, manager.Pool().Outstanding())
}

func TestHealthAndStats(t *testing.T) {
	manager, err := Open(context.Background(), sqliteConfig(t, 2), NopLogger())
	require.NoError(t, err)
	defer manager.Disconnect()

	status := manager.HealthCheck(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, 2, status.MaxOpenConns)
	assert.Equal(t, 2, manager.GetStats().MaxOpenConns)

	require.NoError(t, manager.Disconnect())
	_, err = manager.Pool().Acquire(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, manager.Ping(context.Background()), ErrNotConnected)
}

func TestValidateConnectionConfig(t *testing.T) {
	assert.Error(t, ValidateConnectionConfig(nil))

	cfg := DefaultConnectionConfig()
	cfg.Type = "oracle"
	assert.ErrorContains(t, ValidateConnectionConfig(cfg), "unsupported database type")

	cfg = DefaultConnectionConfig()
	cfg.Host = "db"
	cfg.DBName = "game"
	cfg.MaxOpenConns = 0
	assert.ErrorContains(t, ValidateConnectionConfig(cfg), "max_open_conns")

	cfg.MaxOpenConns = 4
	cfg.MaxIdleConns = 10
	cfg.Type = "postgresql"
	require.NoError(t, ValidateConnectionConfig(cfg))
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, 4, cfg.MaxIdleConns)
}

func TestScriptRunner(t *testing.T) {
	pool, _ := openTestPool(t, 1)
	fsys := fstest.MapFS{
		"common/002_seed.sql":             {Data: []byte("-- seed\nINSERT INTO guild (name) VALUES ('{{.ENVIRONMENT}}');\n")},
		"common/001_schema.sql":           {Data: []byte("CREATE TABLE guild (\n  id INTEGER PRIMARY KEY,\n  name TEXT NOT NULL\n);\n")},
		"environments/dev/001_more.sql":   {Data: []byte("INSERT INTO guild (name) VALUES ('dev-extra');\nINSERT INTO guild (name) VALUES ('dev-extra-2');")},
		"environments/prod/001_other.sql": {Data: []byte("INSERT INTO guild (name) VALUES ('prod');")},
		"common/README.md":                {Data: []byte("ignored")},
	}

	runner := NewScriptRunner(pool, fsys, "dev")
	files, err := runner.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "001_schema.sql", files[0].Name)
	assert.Equal(t, "002_seed.sql", files[1].Name)
	assert.Equal(t, "dev", files[2].Environment)

	results, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[2].Statements)

	rows, err := pool.Query(context.Background(), nil, "SELECT name FROM guild ORDER BY id")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "dev", rows[0]["name"])
}

func TestScriptRunnerStopsAtFailure(t *testing.T) {
	pool, _ := openTestPool(t, 1)
	fsys := fstest.MapFS{
		"common/001_bad.sql":  {Data: []byte("INSERT INTO nowhere VALUES (1);")},
		"common/002_next.sql": {Data: []byte("INSERT INTO player (name, level) VALUES ('x', 1);")},
	}

	results, err := NewScriptRunner(pool, fsys, "").Run(context.Background())
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success())
	assert.Zero(t, pool.Outstanding())
}

func TestSplitStatements(t *testing.T) {
	stmts := SplitStatements("-- header\nCREATE TABLE a (\n  id INT\n);\n\nINSERT INTO a VALUES (1);\nSELECT 1")
	assert.Equal(t, []string{"CREATE TABLE a ( id INT )", "INSERT INTO a VALUES (1)", "SELECT 1"}, stmts)
}
