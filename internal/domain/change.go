package domain

import "time"

// ChangeRecord 表示文档的一次内容变更记录。
// 记录一旦追加到历史日志中就不可修改。
type ChangeRecord struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	DocumentID string    `gorm:"size:191;index;not null" json:"documentId"`
	Author     string    `gorm:"size:64;not null" json:"author"`        // 连接 ID
	AuthorName string    `gorm:"size:191" json:"authorName,omitempty"`  // 客户端声明的作者名
	Content    string    `gorm:"type:longtext;not null" json:"content"` // 变更后的完整内容
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
}

// TableName 固定表名，避免 GORM 的复数推断
func (ChangeRecord) TableName() string { return "change_records" }
