package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aot-inspect/pkg/model"
)

// footprintBatchSize bounds the rows per INSERT when saving class footprints.
const footprintBatchSize = 500

// GormFootprintRepository implements FootprintRepository using GORM.
type GormFootprintRepository struct {
	db *gorm.DB
}

// NewGormFootprintRepository creates a new GormFootprintRepository.
func NewGormFootprintRepository(db *gorm.DB) *GormFootprintRepository {
	return &GormFootprintRepository{db: db}
}

// Save stores the report header and its class rows in one transaction.
func (r *GormFootprintRepository) Save(ctx context.Context, report *model.CacheReport) (int64, error) {
	if report == nil {
		return 0, errors.New("nil report")
	}

	snap := newSnapshotRecord(report)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Classes").Create(snap).Error; err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		rows := newFootprintRecords(snap.ID, report.Classes)
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, footprintBatchSize).Error; err != nil {
			return fmt.Errorf("failed to save class footprints: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return snap.ID, nil
}

// ListSnapshots retrieves snapshot headers, newest first.
func (r *GormFootprintRepository) ListSnapshots(ctx context.Context, source string, limit int) ([]model.Snapshot, error) {
	var records []ArchiveSnapshot

	q := r.db.WithContext(ctx).Order("id DESC")
	if source != "" {
		q = q.Where("source = ?", source)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}

	result := make([]model.Snapshot, len(records))
	for i := range records {
		result[i] = records[i].ToModel()
	}
	return result, nil
}

// GetSnapshot retrieves a snapshot header by ID.
func (r *GormFootprintRepository) GetSnapshot(ctx context.Context, id int64) (*model.Snapshot, error) {
	var record ArchiveSnapshot

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snap := record.ToModel()
	return &snap, nil
}

type historyRow struct {
	SnapshotID int64
	Source     string
	Name       string
	Kind       string
	Size       int64
	CreateTime time.Time
}

// ClassHistory retrieves one class across all snapshots, oldest first.
func (r *GormFootprintRepository) ClassHistory(ctx context.Context, name string) ([]model.ClassHistoryPoint, error) {
	names := []string{name}
	if internal := strings.ReplaceAll(name, ".", "/"); internal != name {
		names = append(names, internal)
	}

	var rows []historyRow
	err := r.db.WithContext(ctx).
		Table(ClassFootprint{}.TableName()+" AS c").
		Select("c.snapshot_id, s.source, c.name, c.kind, c.size, s.create_time").
		Joins("JOIN "+ArchiveSnapshot{}.TableName()+" AS s ON s.id = c.snapshot_id").
		Where("c.name IN ?", names).
		Order("c.snapshot_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query class history: %w", err)
	}

	points := make([]model.ClassHistoryPoint, len(rows))
	for i, row := range rows {
		points[i] = model.ClassHistoryPoint{
			SnapshotID: row.SnapshotID,
			Source:     row.Source,
			Name:       row.Name,
			Kind:       row.Kind,
			Size:       row.Size,
			CreatedAt:  row.CreateTime,
		}
	}
	return points, nil
}

// DeleteSnapshot removes a snapshot together with its class rows.
func (r *GormFootprintRepository) DeleteSnapshot(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("snapshot_id = ?", id).Delete(&ClassFootprint{}).Error; err != nil {
			return fmt.Errorf("failed to delete class footprints: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&ArchiveSnapshot{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete snapshot: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
		}
		return nil
	})
}
