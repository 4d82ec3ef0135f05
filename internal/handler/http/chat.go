package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collaborative-editor/internal/domain"
)

// ChatHistory 提供聊天日志，由 service.ChatService 实现
type ChatHistory interface {
	History() []domain.ChatMessage
}

// ChatHandler 封装聊天历史的 HTTP 处理逻辑
type ChatHandler struct {
	chat ChatHistory
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(chat ChatHistory) *ChatHandler {
	if chat == nil {
		panic("ChatHistory cannot be nil for ChatHandler")
	}
	return &ChatHandler{chat: chat}
}

// GetHistory 返回完整的聊天日志
func (h *ChatHandler) GetHistory(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, h.chat.History())
}
