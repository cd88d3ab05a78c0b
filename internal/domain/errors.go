package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// trip (or member) does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing name, end date before start date, removing
// the last member).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrCorrupt is returned by the repo when the stored collection cannot be
// decoded. Nothing is written back until the data is repaired.
// Handlers should map this to HTTP 500 with a storage_error code.
var ErrCorrupt = errors.New("stored data is corrupt")
