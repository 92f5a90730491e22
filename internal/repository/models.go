package repository

import (
	"time"

	"github.com/aot-inspect/pkg/model"
)

// ArchiveSnapshot represents the aot_snapshot table.
type ArchiveSnapshot struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Source      string    `gorm:"column:source;type:varchar(1024);index"`
	Version     uint32    `gorm:"column:version"`
	JVMIdent    string    `gorm:"column:jvm_ident;type:varchar(256)"`
	BaseAddress int64     `gorm:"column:base_address"`
	ClassCount  int       `gorm:"column:class_count"`
	TotalBytes  int64     `gorm:"column:total_bytes"`
	Violations  int       `gorm:"column:violations"`
	GeneratedAt time.Time `gorm:"column:generated_at"`
	CreateTime  time.Time `gorm:"column:create_time;autoCreateTime"`

	Classes []ClassFootprint `gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for ArchiveSnapshot.
func (ArchiveSnapshot) TableName() string {
	return "aot_snapshot"
}

// ToModel converts ArchiveSnapshot to model.Snapshot.
func (s *ArchiveSnapshot) ToModel() model.Snapshot {
	return model.Snapshot{
		ID:         s.ID,
		Source:     s.Source,
		Version:    s.Version,
		JVMIdent:   s.JVMIdent,
		Classes:    s.ClassCount,
		TotalBytes: s.TotalBytes,
		CreatedAt:  s.CreateTime,
	}
}

// ClassFootprint represents the aot_class_footprint table.
type ClassFootprint struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	SnapshotID  int64  `gorm:"column:snapshot_id;index"`
	Name        string `gorm:"column:name;type:varchar(1024);index"`
	Kind        string `gorm:"column:kind;type:varchar(32)"`
	Category    string `gorm:"column:category;type:varchar(32)"`
	Size        int64  `gorm:"column:size"`
	VtableLen   int32  `gorm:"column:vtable_len"`
	ItableLen   int32  `gorm:"column:itable_len"`
	OopMapCount int32  `gorm:"column:oop_map_count"`
	Interface   bool   `gorm:"column:is_interface"`
}

// TableName returns the table name for ClassFootprint.
func (ClassFootprint) TableName() string {
	return "aot_class_footprint"
}

func newSnapshotRecord(r *model.CacheReport) *ArchiveSnapshot {
	return &ArchiveSnapshot{
		Source:      r.Source,
		Version:     r.Version,
		JVMIdent:    r.JVMIdent,
		BaseAddress: int64(r.BaseAddress),
		ClassCount:  r.ClassCount(),
		TotalBytes:  r.TotalBytes,
		Violations:  len(r.Violations),
		GeneratedAt: r.GeneratedAt,
	}
}

func newFootprintRecords(snapshotID int64, fs []model.ClassFootprint) []ClassFootprint {
	rows := make([]ClassFootprint, len(fs))
	for i, f := range fs {
		rows[i] = ClassFootprint{
			SnapshotID:  snapshotID,
			Name:        f.Name,
			Kind:        f.Kind,
			Category:    f.Category,
			Size:        f.Size,
			VtableLen:   f.VtableLen,
			ItableLen:   f.ItableLen,
			OopMapCount: f.OopMapCount,
			Interface:   f.Interface,
		}
	}
	return rows
}
