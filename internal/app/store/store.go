/*
Package store provides the relational data access layer on top of the pgx connection pool.

Each entity (users, channels, memberships, messages, invitations, bans) gets its own file
with plain SQL queries. The realtime core consumes this package only through the narrow
read paths it needs (channel ids per user, wire representations); everything else serves
the HTTP CRUD surface.
*/
package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps the pgx connection pool and exposes typed queries.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store on top of an initialized connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// wrapNotFound converts pgx.ErrNoRows into ErrNotFound so callers do not need
// to import pgx to distinguish missing rows from infrastructure failures.
func wrapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
