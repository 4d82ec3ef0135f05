package repository

import "context"

// FileRepository 定义了文档当前内容的读写（外部文件存储）。
type FileRepository interface {
	// Read 读取文档的当前内容。
	// 文件不存在时返回 ErrFileNotFound。
	Read(ctx context.Context, documentID string) (string, error)

	// Write 以覆盖方式写入文档的当前内容。
	Write(ctx context.Context, documentID string, content string) error
}
