package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/repository"
)

// ContentChecksum 返回内容的 xxhash64 十六进制摘要
func ContentChecksum(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// CheckpointService 负责把文档当前内容保存为数据库中的检查点。
type CheckpointService struct {
	files     repository.FileRepository
	snapshots repository.SnapshotRepository
	log       *logrus.Entry
}

// NewCheckpointService 创建 CheckpointService 实例
func NewCheckpointService(
	files repository.FileRepository,
	snapshots repository.SnapshotRepository,
	logger *logrus.Logger,
) *CheckpointService {
	if files == nil || snapshots == nil {
		panic("FileRepository and SnapshotRepository must be non-nil for CheckpointService")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CheckpointService{
		files:     files,
		snapshots: snapshots,
		log:       logger.WithField("component", "checkpoint_service"),
	}
}

// Checkpoint 为文档生成检查点。
// 内容不存在或与上一个检查点相同时跳过，返回 false。
func (s *CheckpointService) Checkpoint(ctx context.Context, documentID string) (bool, error) {
	key, err := repository.DocumentKey(documentID)
	if err != nil {
		return false, ErrInvalidDocument
	}
	logCtx := s.log.WithField("document_id", key)

	content, err := s.files.Read(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			logCtx.Debug("No content on disk, skipping checkpoint")
			return false, nil
		}
		logCtx.WithError(err).Error("Checkpoint: failed to read document content")
		return false, fmt.Errorf("read content: %w", err)
	}

	checksum := ContentChecksum(content)
	latest, err := s.snapshots.GetLatestSnapshot(ctx, key)
	switch {
	case err == nil && latest.Checksum == checksum:
		logCtx.Debug("Content unchanged since last checkpoint")
		return false, nil
	case err != nil && !errors.Is(err, repository.ErrSnapshotNotFound):
		logCtx.WithError(err).Error("Checkpoint: failed to load latest checkpoint")
		return false, fmt.Errorf("load latest checkpoint: %w", err)
	}

	snapshot := &domain.DocumentSnapshot{
		DocumentID: key,
		Content:    content,
		Checksum:   checksum,
	}
	if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		logCtx.WithError(err).Error("Checkpoint: failed to save checkpoint")
		return false, fmt.Errorf("save checkpoint: %w", err)
	}

	logCtx.WithField("checksum", checksum).Info("Checkpoint saved")
	return true, nil
}
