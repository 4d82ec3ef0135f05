package filepersistence

import (
	"context"

	"github.com/spf13/afero"

	"collaborative-editor/internal/domain"
)

// ChatLogFileRepository 将全局聊天日志保存在单个 JSON 文件中
type ChatLogFileRepository struct {
	fs   afero.Fs
	path string
}

// NewChatLogFileRepository 创建 ChatLogFileRepository 实例
func NewChatLogFileRepository(fs afero.Fs, path string) *ChatLogFileRepository {
	if fs == nil {
		panic("afero filesystem cannot be nil for ChatLogFileRepository")
	}
	return &ChatLogFileRepository{fs: fs, path: path}
}

func (r *ChatLogFileRepository) Load(_ context.Context) ([]domain.ChatMessage, error) {
	messages := make([]domain.ChatMessage, 0)
	if _, err := readJSON(r.fs, r.path, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *ChatLogFileRepository) Save(_ context.Context, messages []domain.ChatMessage) error {
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return writeJSON(r.fs, r.path, messages)
}
