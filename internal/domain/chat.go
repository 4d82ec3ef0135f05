package domain

import "time"

// ChatMessageKind 区分普通聊天消息和成员变动通知
type ChatMessageKind string

const (
	ChatKindMessage      ChatMessageKind = "message"
	ChatKindNotification ChatMessageKind = "notification"
)

// ChatMessage 是全局聊天日志中的一条记录。
type ChatMessage struct {
	Sender    string          `json:"sender"`
	Text      string          `json:"text"`
	Timestamp time.Time       `json:"date"`
	Kind      ChatMessageKind `json:"type"`
}
