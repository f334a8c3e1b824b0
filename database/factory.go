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
	"maps"
	"slices"
)

var errNoManager = errors.New("database manager not created")

// BaseDatabaseFactory validates a configuration, builds its manager and
// connects it.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
	options []ManagerOption
}

// NewDatabaseFactory returns a factory whose managers log to logger and are
// built with opts.
func NewDatabaseFactory(logger Logger, opts ...ManagerOption) *BaseDatabaseFactory {
	if logger == nil {
		logger = NopLogger()
	}
	return &BaseDatabaseFactory{logger: logger, options: opts}
}

// CreateFromConfig validates cfg and constructs a database manager for it.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if err := ValidateConnectionConfig(cfg); err != nil {
		return nil, err
	}
	manager := NewDatabaseManager(cfg, f.options...)
	manager.SetLogger(f.logger)
	f.manager = manager
	return manager, nil
}

// ValidateConnectionConfig normalizes driver aliases and rejects
// configurations no manager can serve. Idle connections are capped at the
// pool size.
func ValidateConnectionConfig(cfg *ConnectionConfig) error {
	if cfg == nil {
		return errors.New("database configuration cannot be empty")
	}
	switch cfg.Type {
	case "postgresql":
		cfg.Type = "postgres"
	case "sqlite3":
		cfg.Type = "sqlite"
	}
	if _, err := lookupDriver(cfg.Type); err != nil {
		return fmt.Errorf("%w, supported types: %v", err, slices.Sorted(maps.Keys(drivers)))
	}
	if cfg.MaxOpenConns <= 0 {
		return fmt.Errorf("max_open_conns must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	if cfg.StatementTimeout < 0 {
		return errors.New("statement_timeout cannot be negative")
	}
	if cfg.Type != "sqlite" && cfg.Host == "" {
		return fmt.Errorf("host is required for %s", cfg.Type)
	}
	if cfg.DBName == "" {
		return errors.New("dbname is required")
	}
	return nil
}

// InitializeDatabase connects the manager created by CreateFromConfig.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context) error {
	if f.manager == nil {
		return errNoManager
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	f.logger.Info("Database initialization completed")
	return nil
}

// Close disconnects the factory's manager, if any.
func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}
