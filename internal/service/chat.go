package service

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/repository"
)

const (
	// MaxMessageLength 是单条聊天消息文本的最大字节数
	MaxMessageLength = 4096
	// SystemSender 是成员变动通知的发送者
	SystemSender = "system"
)

// ValidateMessage 校验聊天消息文本
func ValidateMessage(text string) error {
	if text == "" {
		return ErrMessageEmpty
	}
	if len(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(text) {
		return ErrMessageInvalid
	}
	return nil
}

// ChatService 维护全局聊天日志。
// 日志保存在内存中，每次追加后把完整日志提交到队列写回存储。
type ChatService struct {
	repo  repository.ChatLogRepository
	queue JobQueue
	log   *logrus.Entry
	now   func() time.Time

	mu       sync.RWMutex
	messages []domain.ChatMessage
}

// NewChatService 创建 ChatService 并加载已持久化的日志。
// 加载失败时从空日志开始，不阻止服务启动。
func NewChatService(ctx context.Context, repo repository.ChatLogRepository, queue JobQueue, logger *logrus.Logger) *ChatService {
	if repo == nil || queue == nil {
		panic("ChatLogRepository and JobQueue must be non-nil for ChatService")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &ChatService{
		repo:  repo,
		queue: queue,
		log:   logger.WithField("component", "chat_service"),
		now:   func() time.Time { return time.Now().UTC() },
	}

	messages, err := repo.Load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load chat log, starting with an empty log")
		messages = nil
	}
	s.messages = messages
	s.log.WithField("count", len(messages)).Info("Chat log loaded")
	return s
}

// History 返回当前日志的副本
func (s *ChatService) History() []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// PostMessage 校验并追加一条普通聊天消息。
// date 为零值时使用服务器时间。
func (s *ChatService) PostMessage(sender, text string, date time.Time) (domain.ChatMessage, error) {
	if err := ValidateMessage(text); err != nil {
		return domain.ChatMessage{}, err
	}
	if date.IsZero() {
		date = s.now()
	}
	msg := domain.ChatMessage{
		Sender:    sender,
		Text:      text,
		Timestamp: date,
		Kind:      domain.ChatKindMessage,
	}
	s.append(msg)
	return msg, nil
}

// Joined 追加一条成员加入通知
func (s *ChatService) Joined(name string) domain.ChatMessage {
	return s.notify(fmt.Sprintf("%s joined the chat", name))
}

// Left 追加一条成员离开通知
func (s *ChatService) Left(name string) domain.ChatMessage {
	return s.notify(fmt.Sprintf("%s left the chat", name))
}

func (s *ChatService) notify(text string) domain.ChatMessage {
	msg := domain.ChatMessage{
		Sender:    SystemSender,
		Text:      text,
		Timestamp: s.now(),
		Kind:      domain.ChatKindNotification,
	}
	s.append(msg)
	return msg
}

func (s *ChatService) append(msg domain.ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	snapshot := make([]domain.ChatMessage, len(s.messages))
	copy(snapshot, s.messages)
	s.mu.Unlock()

	// 同一个 key 上的写任务按顺序执行，最后一次写入总是最新的完整日志
	err := s.queue.Submit(chatLogKey, func(ctx context.Context) {
		if err := s.repo.Save(ctx, snapshot); err != nil {
			s.log.WithError(err).WithField("count", len(snapshot)).Error("Failed to persist chat log")
		}
	})
	if err != nil {
		s.log.WithError(err).Error("Failed to enqueue chat log persistence")
	}
}
