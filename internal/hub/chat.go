package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/dto"
	"collaborative-editor/internal/service"
)

// ChatLog 是全局聊天日志，由 service.ChatService 实现
type ChatLog interface {
	History() []domain.ChatMessage
	PostMessage(sender, text string, date time.Time) (domain.ChatMessage, error)
	Joined(name string) domain.ChatMessage
	Left(name string) domain.ChatMessage
}

// ChatHub 把所有聊天连接放在同一个全局房间中广播。
type ChatHub struct {
	*eventLoop

	chat    ChatLog
	members map[*Client]struct{}
}

// NewChatHub 创建 ChatHub
func NewChatHub(chat ChatLog, logger *logrus.Logger) *ChatHub {
	if chat == nil {
		panic("ChatLog cannot be nil for ChatHub")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ChatHub{
		eventLoop: newEventLoop(logger.WithField("component", "chat_hub")),
		chat:      chat,
		members:   make(map[*Client]struct{}),
	}
}

// Run 启动聊天 Hub 的事件循环，直到 ctx 被取消
func (h *ChatHub) Run(ctx context.Context) {
	h.run(ctx, h.handle, h.shutdown)
}

func (h *ChatHub) handle(msg HubMessage) {
	if msg.Client == nil {
		h.log.WithField("message_type", msg.Type).Error("Received hub message without client")
		return
	}
	switch msg.Type {
	case MessageRegister:
		h.connect(msg.Client)
	case MessageUnregister:
		h.disconnect(msg.Client)
	case MessageInbound:
		h.send(msg.Client, msg.RawData)
	default:
		h.log.Warnf("Received unknown message type: %s", msg.Type)
	}
}

func (h *ChatHub) shutdown() {
	for c := range h.members {
		delete(h.members, c)
		c.closeSend()
	}
}

func (h *ChatHub) recipients() []*Client {
	out := make([]*Client, 0, len(h.members))
	for c := range h.members {
		out = append(out, c)
	}
	return out
}

// connect 先向新连接发送完整历史，再广播加入通知
func (h *ChatHub) connect(c *Client) {
	logCtx := h.log.WithField("connection_id", c.ID())
	if _, ok := h.members[c]; ok {
		return
	}
	h.members[c] = struct{}{}

	if data := marshal(logCtx, h.chat.History()); data != nil && !c.trySend(data) {
		logCtx.Warn("Client send channel full, chat history dropped")
	}

	note := h.chat.Joined(c.Name())
	fanOut(logCtx, h.recipients(), marshal(logCtx, note), c)
	logCtx.WithField("members", len(h.members)).Info("Chat client connected")
}

func (h *ChatHub) send(c *Client, raw []byte) {
	logCtx := h.log.WithField("connection_id", c.ID())
	if _, ok := h.members[c]; !ok {
		logCtx.Debug("Message from a client outside the chat dropped")
		return
	}

	var in dto.ChatMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		logCtx.WithError(fmt.Errorf("%w: %v", service.ErrMalformedMessage, err)).Warn("Dropping chat message")
		return
	}
	sender := in.Sender
	if sender == "" {
		sender = c.Name()
	}

	msg, err := h.chat.PostMessage(sender, in.Text, dto.ParseClientDate(in.Date))
	if err != nil {
		logCtx.WithError(err).Warn("Dropping invalid chat message")
		return
	}
	fanOut(logCtx, h.recipients(), marshal(logCtx, msg), c)
}

func (h *ChatHub) disconnect(c *Client) {
	logCtx := h.log.WithField("connection_id", c.ID())
	if _, ok := h.members[c]; !ok {
		c.closeSend()
		return
	}
	delete(h.members, c)
	c.closeSend()

	note := h.chat.Left(c.Name())
	fanOut(logCtx, h.recipients(), marshal(logCtx, note), nil)
	logCtx.WithField("members", len(h.members)).Info("Chat client disconnected")
}
