package dto

// ChatMessage 表示客户端在聊天 WebSocket 上发送的消息
type ChatMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Date   string `json:"date,omitempty"`
	Type   string `json:"type,omitempty"`
}

// ErrorDTO 表示发送给客户端的错误消息
type ErrorDTO struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
