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
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

const healthPingTimeout = 5 * time.Second

type defaultDatabaseManager struct {
	config  *ConnectionConfig
	pool    *Pool
	metrics *PoolMetrics
	echo    io.Writer

	mu        sync.RWMutex
	logger    Logger
	db        *bun.DB
	sqlDB     *sql.DB
	lastError error
	health    *HealthStatus

	// health loop
	loopMu   sync.Mutex
	stopLoop context.CancelFunc
	loopDone chan struct{}
}

type ManagerOption func(*defaultDatabaseManager)

// WithPoolMetrics records pool statements and checkouts into m.
func WithPoolMetrics(m *PoolMetrics) ManagerOption {
	return func(dm *defaultDatabaseManager) { dm.metrics = m }
}

// WithEchoWriter sets where EchoQueries writes statements. Defaults to stdout.
func WithEchoWriter(w io.Writer) ManagerOption {
	return func(dm *defaultDatabaseManager) { dm.echo = w }
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun. A nil
// config means DefaultConnectionConfig.
func NewDatabaseManager(config *ConnectionConfig, opts ...ManagerOption) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	dm := &defaultDatabaseManager{
		config: config,
		logger: NopLogger(),
		health: &HealthStatus{},
	}
	for _, opt := range opts {
		opt(dm)
	}
	dm.pool = NewPool(nil, WithMetrics(dm.metrics), WithStatementTimeout(config.StatementTimeout))
	return dm
}

// Connect opens the database, pings it and publishes it to the pool. The
// health loop starts with the first successful connect.
func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db != nil {
		return nil
	}

	db, sqlDB, err := dm.open()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	timeout := dm.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		dm.lastError = err
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.db, dm.sqlDB, dm.lastError = db, sqlDB, nil
	dm.pool.setDB(db)
	dm.logger.Info("Database connected", "type", dm.config.Type, "host", dm.config.Host,
		"dbname", dm.config.DBName, "max_open_conns", dm.config.MaxOpenConns)

	if dm.config.HealthCheckInterval > 0 {
		dm.startHealthLoop()
	}
	return nil
}

func (dm *defaultDatabaseManager) open() (*bun.DB, *sql.DB, error) {
	drv, err := lookupDriver(dm.config.Type)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := drv.open(dm.config)
	if err != nil {
		return nil, nil, err
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)

	db := bun.NewDB(sqlDB, drv.dialect())
	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if dm.config.EchoQueries {
		db.AddQueryHook(NewQueryHook(dm.echo, "GAMEDB_ECHO", true))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(dm.config.SlowQueryTime, dm.logger))
	}
	return db, sqlDB, nil
}

// Disconnect stops the health loop and closes the database. Statements
// already holding a connection finish on it; new ones get ErrNotConnected.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.stopHealthLoop()
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.closeLocked()
}

func (dm *defaultDatabaseManager) closeLocked() error {
	if dm.db == nil {
		return nil
	}
	dm.pool.setDB(nil)
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
		return err
	}
	dm.logger.Info("Database connection closed")
	return nil
}

// Reconnect replaces the open database with a fresh one. The pool keeps
// serving the old handle until the swap.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.logger.Info("Reconnecting to the database")
	dm.mu.Lock()
	if err := dm.closeLocked(); err != nil {
		dm.logger.Warn("Error closing the previous connection", "error", err)
	}
	dm.mu.Unlock()
	return dm.Connect(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return ErrNotConnected
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) Pool() *Pool {
	return dm.pool
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

// HealthCheck pings the database and records the result as the latest
// status.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.RLock()
	db, sqlDB := dm.db, dm.sqlDB
	dm.mu.RUnlock()

	start := time.Now()
	status := &HealthStatus{LastCheckTime: start, Outstanding: dm.pool.Outstanding()}
	if db == nil {
		status.LastError = ErrNotConnected.Error()
		dm.record(status, ErrNotConnected)
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	status.Healthy = err == nil
	status.Connected = err == nil
	if err != nil {
		status.LastError = err.Error()
	}

	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	dm.record(status, err)
	return status
}

func (dm *defaultDatabaseManager) record(status *HealthStatus, err error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.health = status
	dm.lastError = err
}

func (dm *defaultDatabaseManager) startHealthLoop() {
	dm.loopMu.Lock()
	defer dm.loopMu.Unlock()
	if dm.stopLoop != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	dm.stopLoop = cancel
	dm.loopDone = make(chan struct{})
	go dm.healthLoop(ctx, dm.loopDone)
}

func (dm *defaultDatabaseManager) stopHealthLoop() {
	dm.loopMu.Lock()
	cancel, done := dm.stopLoop, dm.loopDone
	dm.stopLoop, dm.loopDone = nil, nil
	dm.loopMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// healthLoop pings on every interval and, when reconnect is enabled,
// retries a failed database up to MaxReconnectTries times in a row.
func (dm *defaultDatabaseManager) healthLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	tries := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if dm.HealthCheck(ctx).Healthy {
			tries = 0
			continue
		}
		if !dm.config.EnableReconnect {
			continue
		}
		if tries >= dm.config.MaxReconnectTries {
			if tries == dm.config.MaxReconnectTries {
				dm.logger.Error("Max reconnect attempts reached, giving up", "tries", tries)
				tries++
			}
			continue
		}
		tries++
		dm.logger.Info("Starting database reconnect", "try", tries)
		select {
		case <-ctx.Done():
			return
		case <-time.After(dm.config.ReconnectInterval):
		}
		connectCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
		err := dm.Reconnect(connectCtx)
		cancel()
		if err != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", tries)
			continue
		}
		dm.logger.Info("Reconnect succeeded", "try", tries)
		tries = 0
	}
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{Outstanding: dm.pool.Outstanding()}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		Outstanding:       dm.pool.Outstanding(),
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		logger = NopLogger()
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
	dm.pool.logger = logger
}
