package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"collaborative-editor/internal/domain"
)

// GormHistoryRepository 是 HistoryRepository 接口的 GORM 实现
// 每条 ChangeRecord 对应 change_records 表中的一行，自增主键保证追加顺序
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository 创建 GormHistoryRepository 实例
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	if db == nil {
		panic("database connection cannot be nil for GormHistoryRepository")
	}
	return &GormHistoryRepository{db: db}
}

// Append 插入一条新的变更记录
func (r *GormHistoryRepository) Append(ctx context.Context, record domain.ChangeRecord) error {
	// 只插入，不更新：主键必须由数据库分配
	record.ID = 0
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("gorm: failed to append change record for document %q: %w", record.DocumentID, err)
	}
	return nil
}

// List 按插入顺序返回文档的全部历史
func (r *GormHistoryRepository) List(ctx context.Context, documentID string) ([]domain.ChangeRecord, error) {
	records := make([]domain.ChangeRecord, 0)
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list history for document %q: %w", documentID, err)
	}
	return records, nil
}
