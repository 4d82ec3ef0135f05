package service

import "collaborative-editor/internal/queue"

// JobQueue 是服务层提交后台持久化任务的入口，由 queue.KeyedQueue 实现。
// 相同 key 的任务按提交顺序执行。
type JobQueue interface {
	Submit(key string, job queue.Job) error
}

// chatLogKey 是聊天日志写任务使用的固定队列键
const chatLogKey = "chat:log"
