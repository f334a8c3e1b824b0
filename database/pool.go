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
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/gamedb/types"
)

var (
	ErrConnReleased = errors.New("connection already released")
	ErrNotConnected = errors.New("database not connected")
)

// Result reports the outcome of a data-changing statement.
type Result struct {
	InsertID     int64
	AffectedRows int64
}

// Conn is a connection checked out of a Pool. It must be returned with
// Release exactly once; later calls are no-ops.
type Conn struct {
	conn     bun.Conn
	pool     *Pool
	released atomic.Bool
}

// Release returns the connection to its pool.
func (c *Conn) Release() error {
	return c.pool.Release(c)
}

// Pool executes statements over a bounded set of connections. Every
// statement either runs on a caller-owned Conn or on a connection the pool
// acquires for that statement alone and releases before returning.
type Pool struct {
	db          atomic.Pointer[bun.DB]
	logger      Logger
	metrics     *PoolMetrics
	timeout     time.Duration
	outstanding atomic.Int64
}

type PoolOption func(*Pool)

func WithLogger(logger Logger) PoolOption {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(metrics *PoolMetrics) PoolOption {
	return func(p *Pool) { p.metrics = metrics }
}

// WithStatementTimeout bounds each statement; zero disables the bound.
func WithStatementTimeout(d time.Duration) PoolOption {
	return func(p *Pool) { p.timeout = d }
}

// NewPool wraps db. The pool size is whatever db.SetMaxOpenConns says.
func NewPool(db *bun.DB, opts ...PoolOption) *Pool {
	p := &Pool{logger: NopLogger()}
	p.db.Store(db)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) DB() *bun.DB { return p.db.Load() }

// Dialect returns the dialect of the current database, or nil before connect.
func (p *Pool) Dialect() schema.Dialect {
	if db := p.db.Load(); db != nil {
		return db.Dialect()
	}
	return nil
}

func (p *Pool) setDB(db *bun.DB) { p.db.Store(db) }

func (p *Pool) Logger() Logger { return p.logger }

// Outstanding is the number of connections currently checked out.
func (p *Pool) Outstanding() int64 { return p.outstanding.Load() }

// Acquire checks a connection out, waiting while all of them are in use.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	db := p.db.Load()
	if db == nil {
		return nil, ErrNotConnected
	}
	c, err := db.Conn(ctx)
	if err != nil {
		p.logger.Error("Failed to acquire connection", "error", err)
		return nil, err
	}
	p.outstanding.Add(1)
	p.metrics.checkout(1)
	return &Conn{conn: c, pool: p}, nil
}

// Release returns c to the pool. Releasing nil or an already released
// connection does nothing.
func (p *Pool) Release(c *Conn) error {
	if c == nil || !c.released.CompareAndSwap(false, true) {
		return nil
	}
	p.outstanding.Add(-1)
	p.metrics.checkout(-1)
	if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		p.logger.Warn("Failed to release connection", "error", err)
		return err
	}
	return nil
}

// WithConn runs fn on one acquired connection and always releases it.
func (p *Pool) WithConn(ctx context.Context, fn func(conn *Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return fn(conn)
}

// Query runs a row-returning statement with ? placeholders and returns the
// rows with bit columns already normalized. conn may be nil.
func (p *Pool) Query(ctx context.Context, conn *Conn, query string, args ...any) ([]types.Row, error) {
	var rows []types.Row
	err := p.run(ctx, conn, query, args, func(ctx context.Context, c *Conn) error {
		r, err := c.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer r.Close()
		rows, err = ScanRows(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec runs a data-changing statement. conn may be nil.
func (p *Pool) Exec(ctx context.Context, conn *Conn, query string, args ...any) (Result, error) {
	var out Result
	err := p.run(ctx, conn, query, args, func(ctx context.Context, c *Conn) error {
		res, err := c.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		// Not every driver reports both values.
		if id, err := res.LastInsertId(); err == nil {
			out.InsertID = id
		}
		if n, err := res.RowsAffected(); err == nil {
			out.AffectedRows = n
		}
		return nil
	})
	return out, err
}

func (p *Pool) run(ctx context.Context, conn *Conn, query string, args []any, fn func(context.Context, *Conn) error) error {
	if conn == nil {
		acquired, err := p.Acquire(ctx)
		if err != nil {
			return err
		}
		defer p.Release(acquired)
		conn = acquired
	} else if conn.released.Load() {
		return ErrConnReleased
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx, conn)
	elapsed := time.Since(start)
	p.metrics.observe(query, elapsed, err)

	statement := CollapseWhitespace(query)
	if err != nil {
		p.logger.Error("Statement failed", "sql", statement, "values", args, "duration", elapsed, "error", err)
		return err
	}
	p.logger.Debug("Statement executed", "sql", statement, "values", args, "duration", elapsed)
	return nil
}

// CollapseWhitespace folds every whitespace run in s into a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
