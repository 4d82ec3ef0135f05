package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
)

// 特定资源的错误 (基于通用错误创建，便于 errors.Is 判断)
var (
	ErrFileNotFound     = ErrNotFound
	ErrSnapshotNotFound = ErrNotFound
)

// ErrInvalidDocumentID 表示文档 ID 无法映射为安全的存储路径
var ErrInvalidDocumentID = errors.New("repository: invalid document id")
