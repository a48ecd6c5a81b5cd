// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and middleware to distinguish between different failure
// scenarios without depending on driver error values.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Handlers
// translate this into an HTTP 404 (or 401 for auth lookups).
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a registration collides with an
// existing email address. The email column carries a unique index.
var ErrEmailExists = errors.New("email already exists")
