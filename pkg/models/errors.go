package models

import "errors"

// ErrNotFound is returned by repositories and storage when a record does not
// exist. Callers compare with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrCacheMiss means the cache has no entry; the caller should go to the
// source of truth.
var ErrCacheMiss = errors.New("cache miss")

// ErrConflict is returned by a guarded storage write when a guard key no
// longer holds the expected value.
var ErrConflict = errors.New("conflicting update")
