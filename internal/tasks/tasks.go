package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量
const (
	TypeCheckpointSweep    = "checkpoint:sweep"    // 周期性遍历活跃文档
	TypeDocumentCheckpoint = "checkpoint:document" // 为单个文档生成检查点
)

// 同一文档的检查点任务在该时间窗口内只入队一次
const documentCheckpointUniqueTTL = time.Minute

// DocumentCheckpointPayload 定义了文档检查点任务的数据结构
type DocumentCheckpointPayload struct {
	DocumentID string `json:"document_id"`
}

// NewCheckpointSweepTask 创建周期性遍历任务，由 Scheduler 注册
func NewCheckpointSweepTask() *asynq.Task {
	return asynq.NewTask(TypeCheckpointSweep, nil, asynq.MaxRetry(1), asynq.Timeout(time.Minute))
}

// NewDocumentCheckpointTask 创建一个文档检查点任务
func NewDocumentCheckpointTask(documentID string) (*asynq.Task, error) {
	if documentID == "" {
		return nil, fmt.Errorf("tasks: empty document id")
	}
	payload, err := json.Marshal(DocumentCheckpointPayload{DocumentID: documentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDocumentCheckpoint, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Unique(documentCheckpointUniqueTTL),
	), nil
}

// ParseDocumentCheckpointPayload 解析文档检查点任务的 payload
func ParseDocumentCheckpointPayload(t *asynq.Task) (DocumentCheckpointPayload, error) {
	var p DocumentCheckpointPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, err
	}
	if p.DocumentID == "" {
		return p, fmt.Errorf("tasks: payload without document id")
	}
	return p, nil
}
