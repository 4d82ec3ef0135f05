package redisstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/domain"
)

// RedisChatLogRepository 是 ChatLogRepository 接口的 Redis 实现
// 日志保存在一个 LIST 中，每个元素是一条消息的 JSON
type RedisChatLogRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisChatLogRepository 创建 RedisChatLogRepository 实例
func NewRedisChatLogRepository(client *redis.Client, keyPrefix string) *RedisChatLogRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisChatLogRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "ce:"
	}
	return &RedisChatLogRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisChatLogRepository) chatLogKey() string {
	return r.keyPrefix + "chat:messages"
}

// Load 读取完整的聊天日志
func (r *RedisChatLogRepository) Load(ctx context.Context) ([]domain.ChatMessage, error) {
	key := r.chatLogKey()
	items, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to load chat log from %s: %w", key, err)
	}
	messages := make([]domain.ChatMessage, 0, len(items))
	for _, item := range items {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logrus.Warnf("redis: skipping undecodable chat message in %s: %v", key, err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Save 在一个事务中用完整列表替换日志
func (r *RedisChatLogRepository) Save(ctx context.Context, messages []domain.ChatMessage) error {
	key := r.chatLogKey()
	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("redis: failed to marshal chat message: %w", err)
		}
		values = append(values, string(b))
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(values) > 0 {
		pipe.RPush(ctx, key, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to save chat log (size %d) to %s: %w", len(messages), key, err)
	}
	return nil
}
