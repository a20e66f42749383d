// Package storage holds what every snapshot backend shares.
package storage

import "errors"

// ErrSnapshotNotFound is returned when no snapshot exists for an entity ID.
var ErrSnapshotNotFound = errors.New("snapshot not found")
