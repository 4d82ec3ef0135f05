package repository

import (
	"context"

	"collaborative-editor/internal/domain"
)

// HistoryRepository 定义了文档变更历史的持久化。
// 历史是只追加的：实现不得修改或删除已有记录。
type HistoryRepository interface {
	// Append 将一条记录追加到文档的历史日志末尾。
	// 同一文档的并发 Append 需要由调用方串行化。
	Append(ctx context.Context, record domain.ChangeRecord) error

	// List 按追加顺序返回文档的全部历史。日志不存在时返回空切片。
	List(ctx context.Context, documentID string) ([]domain.ChangeRecord, error)
}
