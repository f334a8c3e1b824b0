// Package gamedb is the data-access layer of the game database: typed
// filters rendered to SQL, a bounded execution pool, generic repositories,
// and opaque per-family cursors for keyset pagination.
package gamedb
