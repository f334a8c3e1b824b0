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
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

// driver opens a *sql.DB for one database type and names its dialect.
type driver struct {
	open    func(cfg *ConnectionConfig) (*sql.DB, error)
	dialect func() schema.Dialect
}

var drivers = map[string]driver{
	"mysql": {
		open: func(cfg *ConnectionConfig) (*sql.DB, error) {
			conn, err := mysql.NewConnector(mysqlConfig(cfg))
			if err != nil {
				return nil, err
			}
			return sql.OpenDB(conn), nil
		},
		dialect: func() schema.Dialect { return mysqldialect.New() },
	},
	"postgres": {
		open: func(cfg *ConnectionConfig) (*sql.DB, error) {
			conn, err := pq.NewConnector(postgresDSN(cfg))
			if err != nil {
				return nil, err
			}
			return sql.OpenDB(conn), nil
		},
		dialect: func() schema.Dialect { return pgdialect.New() },
	},
	"sqlite": {
		open: func(cfg *ConnectionConfig) (*sql.DB, error) {
			return sql.Open(sqliteshim.ShimName, sqliteDSN(cfg.DBName))
		},
		dialect: func() schema.Dialect { return sqlitedialect.New() },
	},
}

func lookupDriver(dbType string) (driver, error) {
	d, ok := drivers[dbType]
	if !ok {
		return driver{}, fmt.Errorf("unsupported database type: %s", dbType)
	}
	return d, nil
}

func mysqlConfig(cfg *ConnectionConfig) *mysql.Config {
	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	mc.Params = map[string]string{"charset": charset}
	return mc
}

func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if cfg.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// sqliteDSN keeps explicit paths, URIs and :memory: as given and appends
// ".db" to a bare name.
func sqliteDSN(name string) string {
	switch {
	case name == ":memory:", strings.HasPrefix(name, "file:"),
		strings.HasSuffix(name, ".db"), strings.HasSuffix(name, ".sqlite"):
		return name
	}
	return name + ".db"
}
