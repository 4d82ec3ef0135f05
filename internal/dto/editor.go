package dto

import "time"

// EditorMessage 表示客户端在编辑器 WebSocket 上发送的消息。
// 三种形态共用一个结构：切换文档、内容更新、焦点变化。
type EditorMessage struct {
	FileName    string  `json:"fileName"`
	Author      string  `json:"author,omitempty"`
	Content     *string `json:"content,omitempty"`
	Date        string  `json:"date,omitempty"`
	EditorFocus *bool   `json:"editorFocus,omitempty"`
}

// HasContent 表示消息是否携带内容（空字符串也算，用于清空文档）
func (m EditorMessage) HasContent() bool { return m.Content != nil }

// HasText 表示消息是否携带非空内容。失焦消息只有携带非空内容时才保留锁。
func (m EditorMessage) HasText() bool { return m.Content != nil && *m.Content != "" }

// ContentUpdate 是转发给同一房间其他成员的内容更新
type ContentUpdate struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// LockNotification 是发送给房间成员的锁状态通知
type LockNotification struct {
	Type   string `json:"type"`
	Locked bool   `json:"locked"`
	Author string `json:"author,omitempty"`
}

// NewLockNotification 构造锁状态通知
func NewLockNotification(locked bool, author string) LockNotification {
	return LockNotification{Type: "lock", Locked: locked, Author: author}
}

// ParseClientDate 解析客户端提供的时间（JavaScript toISOString 格式）。
// 无法解析时返回零值，由调用方改用服务器时间。
func ParseClientDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
