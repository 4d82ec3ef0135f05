package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/hub"
)

// Registrar 接受新建的客户端，由 hub.EditorHub 和 hub.ChatHub 实现
type Registrar interface {
	hub.Dispatcher
	Register(c *hub.Client) bool
}

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	editor   Registrar
	chat     Registrar
	logger   *logrus.Logger
}

// NewWebSocketHandler 创建 WebSocketHandler 实例。
// allowedOrigin 为 "*" 或空时允许所有来源。
func NewWebSocketHandler(editor, chat Registrar, allowedOrigin string, logger *logrus.Logger) *WebSocketHandler {
	if editor == nil || chat == nil {
		panic("editor and chat hubs must be non-nil for WebSocketHandler")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" || allowedOrigin == "*" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		},
	}

	return &WebSocketHandler{
		upgrader: upgrader,
		editor:   editor,
		chat:     chat,
		logger:   logger,
	}
}

// HandleEditor 处理编辑器连接：GET /ws/editor
func (h *WebSocketHandler) HandleEditor(c *gin.Context) {
	h.serve(c, h.editor, "", "editor")
}

// HandleChat 处理聊天连接：GET /ws/chat?name=<显示名>
func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	h.serve(c, h.chat, c.Query("name"), "chat")
}

func (h *WebSocketHandler) serve(c *gin.Context, target Registrar, name, channel string) {
	logCtx := h.logger.WithFields(logrus.Fields{"channel": channel, "remote_addr": c.ClientIP()})

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了 HTTP 错误响应
		logCtx.WithError(err).Warn("WS Handler: Failed to upgrade connection")
		return
	}

	client := hub.NewClient(target, conn, name, h.logger)
	logCtx = logCtx.WithField("connection_id", client.ID())

	if !target.Register(client) {
		logCtx.Error("WS Handler: Hub is not running, closing connection")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"))
		conn.Close()
		return
	}

	client.Run()
	logCtx.Info("WS Handler: Client connected")
}
