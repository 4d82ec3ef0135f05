package filepersistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"collaborative-editor/internal/repository"
)

const contentExt = ".txt"

// FileStore 是 FileRepository 的文件系统实现，文档内容保存为 <dir>/<id>.txt
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore 创建 FileStore 实例
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	if fs == nil {
		panic("afero filesystem cannot be nil for FileStore")
	}
	return &FileStore{fs: fs, dir: dir}
}

func (s *FileStore) contentPath(documentID string) (string, error) {
	key, err := repository.DocumentKey(documentID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key+contentExt), nil
}

// Read 读取文档当前内容
func (s *FileStore) Read(_ context.Context, documentID string) (string, error) {
	name, err := s.contentPath(documentID)
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return "", repository.ErrFileNotFound
		}
		return "", fmt.Errorf("file: read document %q: %w", documentID, err)
	}
	return string(data), nil
}

// Write 覆盖写入文档当前内容
func (s *FileStore) Write(_ context.Context, documentID string, content string) error {
	name, err := s.contentPath(documentID)
	if err != nil {
		return err
	}
	return writeAtomic(s.fs, name, []byte(content))
}
