package repository

import (
	"context"

	"collaborative-editor/internal/domain"
)

// SnapshotRepository 定义了文档检查点在数据库中的操作。
type SnapshotRepository interface {
	// GetLatestSnapshot 获取指定文档的最新检查点。
	// 没有检查点时返回 ErrSnapshotNotFound。
	GetLatestSnapshot(ctx context.Context, documentID string) (*domain.DocumentSnapshot, error)

	// SaveSnapshot 保存一个新的检查点记录。
	SaveSnapshot(ctx context.Context, snapshot *domain.DocumentSnapshot) error
}
