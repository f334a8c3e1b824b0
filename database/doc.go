// Package database provides connection management, the bounded statement
// pool, row scanning, SQL script execution, configuration types, logging,
// query hooks, health checks, and related utilities built on top of Bun.
package database
