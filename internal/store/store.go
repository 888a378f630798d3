// Package store persists the category tree and product rows in Postgres.
package store

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")
