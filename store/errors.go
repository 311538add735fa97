package store

import "github.com/cockroachdb/errors"

// ErrNodeNotFound is returned by a NodeReader when a requested node
// hash is absent from both the dirty cache and the backing store.
var ErrNodeNotFound = errors.New("store: node not found")

// ErrIntegrity indicates a node referenced by the tree is missing from
// the underlying store — a fatal, non-retryable condition (spec §7).
var ErrIntegrity = errors.New("store: integrity error, referenced node missing")

// ErrUnknownVersion is returned when a historical root is requested for
// a version that was never committed.
var ErrUnknownVersion = errors.New("store: unknown version")
