package domain

import "time"

// DocumentSnapshot 是文档内容的周期性检查点。
type DocumentSnapshot struct {
	ID         uint      `gorm:"primaryKey"`
	DocumentID string    `gorm:"size:191;index;not null"`
	Content    string    `gorm:"type:longtext;not null"`
	Checksum   string    `gorm:"size:16;not null"` // xxhash64(Content) 的十六进制
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

func (DocumentSnapshot) TableName() string { return "document_snapshots" }
