package model

import "time"

// Snapshot is a persisted cache report header.
type Snapshot struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Version    uint32    `json:"version"`
	JVMIdent   string    `json:"jvm_ident"`
	Classes    int       `json:"classes"`
	TotalBytes int64     `json:"total_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClassHistoryPoint is the footprint of one class in one snapshot.
type ClassHistoryPoint struct {
	SnapshotID int64     `json:"snapshot_id"`
	Source     string    `json:"source"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}
