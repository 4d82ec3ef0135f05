package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/repository"
)

// DocumentService 负责文档内容与变更历史的持久化。
// 写操作全部提交到 JobQueue，调用方（Hub 事件循环）不会被 I/O 阻塞。
type DocumentService struct {
	files   repository.FileRepository
	history repository.HistoryRepository
	queue   JobQueue
	log     *logrus.Entry
}

// NewDocumentService 创建 DocumentService 实例
func NewDocumentService(
	files repository.FileRepository,
	history repository.HistoryRepository,
	queue JobQueue,
	logger *logrus.Logger,
) *DocumentService {
	if files == nil || history == nil || queue == nil {
		panic("FileRepository, HistoryRepository and JobQueue must be non-nil for DocumentService")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DocumentService{
		files:   files,
		history: history,
		queue:   queue,
		log:     logger.WithField("component", "document_service"),
	}
}

// PersistChange 异步覆盖文档当前内容，然后追加一条变更记录。
// 记录的 DocumentID 统一为 DocumentKey，两种历史后端因此使用同一个键。
// 同一文档的任务按调用顺序执行，失败只记录日志。
func (s *DocumentService) PersistChange(record domain.ChangeRecord) {
	logCtx := s.log.WithFields(logrus.Fields{
		"document_id":   record.DocumentID,
		"connection_id": record.Author,
	})

	key, err := repository.DocumentKey(record.DocumentID)
	if err != nil {
		logCtx.WithError(err).Warn("Refusing to persist change for invalid document id")
		return
	}
	record.DocumentID = key

	err = s.queue.Submit(key, func(ctx context.Context) {
		if err := s.files.Write(ctx, record.DocumentID, record.Content); err != nil {
			logCtx.WithError(err).Error("Failed to write document content")
		}
		if err := s.history.Append(ctx, record); err != nil {
			logCtx.WithError(err).Error("Failed to append change record")
			return
		}
		logCtx.Debug("Change persisted")
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to enqueue change persistence")
	}
}

// ReadContent 读取文档当前内容
func (s *DocumentService) ReadContent(ctx context.Context, documentID string) (string, error) {
	content, err := s.files.Read(ctx, documentID)
	if err != nil {
		if mapped := mapRepoError(err); mapped != ErrInternalServer {
			return "", mapped
		}
		s.log.WithField("document_id", documentID).WithError(err).Error("Failed to read document content")
		return "", ErrInternalServer
	}
	return content, nil
}

// History 按追加顺序返回文档的变更历史
func (s *DocumentService) History(ctx context.Context, documentID string) ([]domain.ChangeRecord, error) {
	key, err := repository.DocumentKey(documentID)
	if err != nil {
		return nil, ErrInvalidDocument
	}
	records, err := s.history.List(ctx, key)
	if err != nil {
		if mapped := mapRepoError(err); mapped != ErrInternalServer {
			return nil, mapped
		}
		s.log.WithField("document_id", documentID).WithError(err).Error("Failed to list change history")
		return nil, ErrInternalServer
	}
	if records == nil {
		records = []domain.ChangeRecord{}
	}
	return records, nil
}
