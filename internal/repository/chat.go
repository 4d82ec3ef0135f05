package repository

import (
	"context"

	"collaborative-editor/internal/domain"
)

// ChatLogRepository 定义了全局聊天日志的持久化。
type ChatLogRepository interface {
	// Load 读取完整的聊天日志。日志不存在时返回空切片。
	Load(ctx context.Context) ([]domain.ChatMessage, error)

	// Save 用给定的完整列表覆盖已持久化的日志。
	Save(ctx context.Context, messages []domain.ChatMessage) error
}
