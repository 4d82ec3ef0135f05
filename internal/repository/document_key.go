package repository

import (
	"path"
	"strings"
)

// DocumentKey 将文档 ID 规范化为不含目录的文件名主干。
// "12.txt" 与 "12" 对应同一个文档；任何目录部分都会被丢弃，防止路径穿越。
// 存储实现和按文档串行化的写队列都以它为键。
func DocumentKey(documentID string) (string, error) {
	base := path.Base(path.Clean("/" + strings.ReplaceAll(documentID, "\\", "/")))
	base = strings.TrimSuffix(base, ".txt")
	if base == "" || base == "/" || base == "." || base == ".." {
		return "", ErrInvalidDocumentID
	}
	return base, nil
}
