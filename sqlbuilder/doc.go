// Package sqlbuilder renders SELECT, INSERT, UPDATE and DELETE statements from
// table names, trusted fragments and typed column filters. All user values are
// bound as ? arguments; the database layer escapes them with the dialect's
// literal routine when the statement runs.
package sqlbuilder
