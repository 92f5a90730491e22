// Package repository persists cache footprint snapshots so class sizes can be
// compared across builds of the same application.
package repository

import (
	"context"
	"errors"

	"github.com/aot-inspect/pkg/model"
)

// ErrSnapshotNotFound is returned when a snapshot ID does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// FootprintRepository defines the interface for footprint snapshot storage.
type FootprintRepository interface {
	// Save stores a report and all of its class footprints, returning the new snapshot ID.
	Save(ctx context.Context, report *model.CacheReport) (int64, error)

	// ListSnapshots returns snapshots newest first. An empty source matches all.
	ListSnapshots(ctx context.Context, source string, limit int) ([]model.Snapshot, error)

	// GetSnapshot returns one snapshot header.
	GetSnapshot(ctx context.Context, id int64) (*model.Snapshot, error)

	// ClassHistory returns the footprint of a class in every snapshot that holds it,
	// oldest first. Both internal and dotted names are accepted.
	ClassHistory(ctx context.Context, name string) ([]model.ClassHistoryPoint, error)

	// DeleteSnapshot removes a snapshot and its class rows.
	DeleteSnapshot(ctx context.Context, id int64) error
}
