package filepersistence

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/repository"
)

// HistoryFileRepository 将每个文档的变更历史保存为一个 JSON 数组文件。
// Append 是读-改-写操作，同一文档的调用必须由上层串行化。
type HistoryFileRepository struct {
	fs  afero.Fs
	dir string
}

// NewHistoryFileRepository 创建 HistoryFileRepository 实例
func NewHistoryFileRepository(fs afero.Fs, dir string) *HistoryFileRepository {
	if fs == nil {
		panic("afero filesystem cannot be nil for HistoryFileRepository")
	}
	return &HistoryFileRepository{fs: fs, dir: dir}
}

func (r *HistoryFileRepository) logPath(documentID string) (string, error) {
	key, err := repository.DocumentKey(documentID)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.dir, key+".json"), nil
}

// Append 读取已有日志（不存在视为空），追加记录后整体重写
func (r *HistoryFileRepository) Append(_ context.Context, record domain.ChangeRecord) error {
	name, err := r.logPath(record.DocumentID)
	if err != nil {
		return err
	}
	var records []domain.ChangeRecord
	// 解析失败时直接返回错误，不能覆盖掉已有历史
	if _, err := readJSON(r.fs, name, &records); err != nil {
		return fmt.Errorf("file: load history for %q: %w", record.DocumentID, err)
	}
	records = append(records, record)
	if err := writeJSON(r.fs, name, records); err != nil {
		return fmt.Errorf("file: save history for %q (size %d): %w", record.DocumentID, len(records), err)
	}
	return nil
}

// List 返回文档的全部历史
func (r *HistoryFileRepository) List(_ context.Context, documentID string) ([]domain.ChangeRecord, error) {
	name, err := r.logPath(documentID)
	if err != nil {
		return nil, err
	}
	records := make([]domain.ChangeRecord, 0)
	if _, err := readJSON(r.fs, name, &records); err != nil {
		return nil, err
	}
	return records, nil
}
