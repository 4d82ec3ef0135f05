package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/repository"
)

// GormSnapshotRepository 是 SnapshotRepository 接口的 GORM 实现
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository 创建 GormSnapshotRepository 实例
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSnapshotRepository")
	}
	return &GormSnapshotRepository{db: db}
}

// GetLatestSnapshot 获取指定文档的最新检查点
// 按主键降序取第一条，同一秒内的多次检查点也能正确排序
func (r *GormSnapshotRepository) GetLatestSnapshot(ctx context.Context, documentID string) (*domain.DocumentSnapshot, error) {
	var snapshot domain.DocumentSnapshot
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("id DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("gorm: failed to get latest snapshot for document %q: %w", documentID, err)
	}
	return &snapshot, nil
}

// SaveSnapshot 插入新的检查点记录
func (r *GormSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *domain.DocumentSnapshot) error {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("gorm: failed to save snapshot (document %q, checksum %s): %w", snapshot.DocumentID, snapshot.Checksum, err)
	}
	return nil
}
