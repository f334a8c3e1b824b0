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
	"time"

	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection, exposing its statement pool and reporting health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	Pool() *Pool
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	Outstanding   int64         `json:"outstanding"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats plus the pool's own checkout count.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	Outstanding       int64         `json:"outstanding"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and size its pool.
// MaxOpenConns is the hard bound on concurrently checked-out connections;
// callers beyond it wait in Pool.Acquire.
type ConnectionConfig struct {
	Type                string        `yaml:"type" json:"type" env:"DB_TYPE" env-default:"mysql"` // mysql, postgres, sqlite
	Host                string        `yaml:"host" json:"host" env:"DB_HOST" env-default:"127.0.0.1"`
	Port                int           `yaml:"port" json:"port" env:"DB_PORT" env-default:"3306"`
	Username            string        `yaml:"username" json:"username" env:"DB_USERNAME"`
	Password            string        `yaml:"password" json:"password" env:"DB_PASSWORD"`
	DBName              string        `yaml:"dbname" json:"dbname" env:"DB_NAME"`
	SSLMode             string        `yaml:"sslmode" json:"sslmode" env:"DB_SSLMODE"`
	MaxIdleConns        int           `yaml:"max_idle_conns" json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns        int           `yaml:"max_open_conns" json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	ConnMaxLifetime     time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	ConnMaxIdleTime     time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time" env-default:"30m"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout" json:"connect_timeout" env-default:"10s"`
	ReadTimeout         time.Duration `yaml:"read_timeout" json:"read_timeout" env-default:"30s"`
	WriteTimeout        time.Duration `yaml:"write_timeout" json:"write_timeout" env-default:"30s"`
	StatementTimeout    time.Duration `yaml:"statement_timeout" json:"statement_timeout" env:"DB_STATEMENT_TIMEOUT"`
	EnableReconnect     bool          `yaml:"enable_reconnect" json:"enable_reconnect" env:"DB_ENABLE_RECONNECT" env-default:"true"`
	ReconnectInterval   time.Duration `yaml:"reconnect_interval" json:"reconnect_interval" env-default:"5s"`
	MaxReconnectTries   int           `yaml:"max_reconnect_tries" json:"max_reconnect_tries" env-default:"3"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval" env-default:"5m"`
	EnableQueryLog      bool          `yaml:"enable_query_log" json:"enable_query_log" env:"DB_ENABLE_QUERY_LOG"`
	EchoQueries         bool          `yaml:"echo_queries" json:"echo_queries" env:"DB_ECHO_QUERIES"`
	SlowQueryTime       time.Duration `yaml:"slow_query_time" json:"slow_query_time" env-default:"2s"`
	Charset             string        `yaml:"charset" json:"charset" env-default:"utf8mb4"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Type:                "mysql",
		MaxIdleConns:        10,
		MaxOpenConns:        10,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		SlowQueryTime:       time.Second * 2,
		Charset:             "utf8mb4",
	}
}
