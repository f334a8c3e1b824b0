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

// Package app assembles a running gamedb instance from its configuration.
// Every collaborator is built once here and handed to the services that
// need it.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomoncle/gamedb/config"
	"github.com/tomoncle/gamedb/database"
	"github.com/tomoncle/gamedb/game"
	"github.com/tomoncle/gamedb/hashid"
	"github.com/tomoncle/gamedb/repository"
	"github.com/tomoncle/gamedb/utils"
)

const loggerName = "gamedb"

type App struct {
	Config  *config.Config
	Logger  database.Logger
	Manager database.AbstractDatabaseManager
	Pool    *database.Pool
	Codecs  *hashid.Registry

	Characters *game.CharacterService
	Guilds     *game.GuildService
	Maps       *game.MapService
}

type options struct {
	registerer prometheus.Registerer
	logOutput  io.Writer
	echo       io.Writer
}

type Option func(*options)

// WithRegisterer registers the pool metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithLogOutput sends every log line to w.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithEchoWriter sets where echoed statements go when echo_queries is on.
func WithEchoWriter(w io.Writer) Option {
	return func(o *options) { o.echo = w }
}

// Open connects to the configured database and builds the services. The
// caller must Close the returned App.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	utils.ConfigureLogLevel(cfg.Log.Level)
	utils.ConfigureLogFormat(cfg.Log.Format)
	if o.logOutput != nil {
		utils.ConfigureLogOutput(o.logOutput)
	}
	logger := database.NewLogger(loggerName, database.ParseLogLevel(cfg.Log.Level))

	codecs, err := hashid.NewRegistry(cfg.Families)
	if err != nil {
		return nil, fmt.Errorf("id families: %w", err)
	}

	var managerOpts []database.ManagerOption
	if o.registerer != nil {
		managerOpts = append(managerOpts, database.WithPoolMetrics(database.NewPoolMetrics(o.registerer, cfg.Metrics.Namespace)))
	}
	if o.echo != nil {
		managerOpts = append(managerOpts, database.WithEchoWriter(o.echo))
	}
	manager, err := database.Open(ctx, &cfg.Database, logger, managerOpts...)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Manager: manager,
		Pool:    manager.Pool(),
		Codecs:  codecs,
	}
	if err := a.services(); err != nil {
		_ = manager.Disconnect()
		return nil, err
	}
	logger.Info("gamedb ready", "environment", cfg.Environment, "database", cfg.Database.Type,
		"families", len(cfg.Families))
	return a, nil
}

func (a *App) services() error {
	limits := a.Config.Pagination
	var err error
	if a.Characters, err = game.NewCharacterService(a.Pool, a.Codecs, repository.WithLimits[game.Character](limits)); err != nil {
		return fmt.Errorf("character service: %w", err)
	}
	if a.Guilds, err = game.NewGuildService(a.Pool, a.Codecs, repository.WithLimits[game.Guild](limits)); err != nil {
		return fmt.Errorf("guild service: %w", err)
	}
	if a.Maps, err = game.NewMapService(a.Pool, a.Codecs, repository.WithLimits[game.GameMap](limits)); err != nil {
		return fmt.Errorf("map service: %w", err)
	}
	return nil
}

// ApplySchema runs the game schema scripts for the configured environment.
func (a *App) ApplySchema(ctx context.Context) ([]database.ExecutionResult, error) {
	return game.ApplySchema(ctx, a.Pool, a.Config.Environment, a.Config.Schema.StartMap)
}

func (a *App) Health(ctx context.Context) *database.HealthStatus {
	return a.Manager.HealthCheck(ctx)
}

func (a *App) Close() error {
	return a.Manager.Disconnect()
}
