package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"collaborative-editor/internal/service"
	"collaborative-editor/internal/tasks"
)

// 遍历时同时入队的最大任务数
const sweepConcurrency = 8

// ActiveDocuments 提供当前活跃的文档 ID，由 hub.RoomDirectory 实现
type ActiveDocuments interface {
	ActiveDocumentIDs() []string
}

// Enqueuer 是 asynq.Client 的入队子集
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Checkpointer 为单个文档生成检查点，由 service.CheckpointService 实现
type Checkpointer interface {
	Checkpoint(ctx context.Context, documentID string) (bool, error)
}

func taskLogger(ctx context.Context, log *logrus.Entry, t *asynq.Task) *logrus.Entry {
	fields := logrus.Fields{"task_type": t.Type()}
	if id, ok := asynq.GetTaskID(ctx); ok {
		fields["task_id"] = id
	}
	if retry, ok := asynq.GetRetryCount(ctx); ok {
		fields["retry"] = retry
	}
	return log.WithFields(fields)
}

// CheckpointSweepHandler 处理周期性遍历任务：为每个活跃文档入队一个检查点任务
type CheckpointSweepHandler struct {
	rooms    ActiveDocuments
	enqueuer Enqueuer
	log      *logrus.Entry
}

// NewCheckpointSweepHandler 创建 Handler 实例
func NewCheckpointSweepHandler(rooms ActiveDocuments, enqueuer Enqueuer, logger *logrus.Logger) *CheckpointSweepHandler {
	if rooms == nil || enqueuer == nil {
		panic("ActiveDocuments and Enqueuer must be non-nil for CheckpointSweepHandler")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CheckpointSweepHandler{rooms: rooms, enqueuer: enqueuer, log: logger.WithField("component", "checkpoint_sweep")}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *CheckpointSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, h.log, t)

	ids := h.rooms.ActiveDocumentIDs()
	if len(ids) == 0 {
		logCtx.Debug("No active documents, skipping checkpoint sweep")
		return nil
	}
	logCtx.Infof("Found %d active documents to checkpoint", len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return EnqueueDocumentCheckpoint(gctx, h.enqueuer, id)
		})
	}
	if err := g.Wait(); err != nil {
		logCtx.WithError(err).Error("Checkpoint sweep failed to enqueue some documents")
		return err
	}
	return nil
}

// EnqueueDocumentCheckpoint 为文档入队一个检查点任务，重复任务不视为错误
func EnqueueDocumentCheckpoint(ctx context.Context, enqueuer Enqueuer, documentID string) error {
	task, err := tasks.NewDocumentCheckpointTask(documentID)
	if err != nil {
		return err
	}
	if _, err := enqueuer.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue checkpoint for %q: %w", documentID, err)
	}
	return nil
}

// DocumentCheckpointHandler 处理单个文档的检查点任务
type DocumentCheckpointHandler struct {
	checkpoints Checkpointer
	log         *logrus.Entry
}

// NewDocumentCheckpointHandler 创建 Handler 实例
func NewDocumentCheckpointHandler(checkpoints Checkpointer, logger *logrus.Logger) *DocumentCheckpointHandler {
	if checkpoints == nil {
		panic("Checkpointer cannot be nil for DocumentCheckpointHandler")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DocumentCheckpointHandler{checkpoints: checkpoints, log: logger.WithField("component", "document_checkpoint")}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *DocumentCheckpointHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, h.log, t)

	payload, err := tasks.ParseDocumentCheckpointPayload(t)
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithField("document_id", payload.DocumentID)

	start := time.Now()
	created, err := h.checkpoints.Checkpoint(ctx, payload.DocumentID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDocument) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	logCtx.WithFields(logrus.Fields{"created": created, "duration_ms": time.Since(start).Milliseconds()}).Info("Document checkpoint task processed")
	return nil
}
