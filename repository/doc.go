// Package repository provides the generic entity repository: descriptor
// driven reads, batch inserts with ignore and upsert variants, updates,
// deletes, truncation, and keyset pagination with opaque cursors.
package repository
