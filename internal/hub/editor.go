package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/dto"
	"collaborative-editor/internal/repository"
	"collaborative-editor/internal/service"
)

// LockPolicy 决定非持锁者的内容更新是否被接受
type LockPolicy string

const (
	// LockPolicyAdvisory 接受任何成员的内容，锁只用于提示其他编辑者
	LockPolicyAdvisory LockPolicy = "advisory"
	// LockPolicyEnforced 在其他成员持锁时丢弃内容更新
	LockPolicyEnforced LockPolicy = "enforced"
)

// ParseLockPolicy 解析配置中的锁策略，空字符串视为 advisory
func ParseLockPolicy(s string) (LockPolicy, error) {
	switch LockPolicy(s) {
	case "", LockPolicyAdvisory:
		return LockPolicyAdvisory, nil
	case LockPolicyEnforced:
		return LockPolicyEnforced, nil
	default:
		return "", fmt.Errorf("unknown lock policy %q (want advisory or enforced)", s)
	}
}

// ChangePersister 异步持久化内容变更，由 service.DocumentService 实现
type ChangePersister interface {
	PersistChange(record domain.ChangeRecord)
}

// EditorHub 协调编辑器连接：文档房间、写锁和内容广播。
type EditorHub struct {
	*eventLoop

	registry *Registry
	rooms    *RoomDirectory
	locks    *LockArbiter
	docs     ChangePersister
	policy   LockPolicy
	now      func() time.Time
}

// NewEditorHub 创建并返回一个新的 EditorHub 实例
func NewEditorHub(rooms *RoomDirectory, docs ChangePersister, policy LockPolicy, logger *logrus.Logger) *EditorHub {
	if rooms == nil {
		panic("RoomDirectory cannot be nil for EditorHub")
	}
	if docs == nil {
		panic("ChangePersister cannot be nil for EditorHub")
	}
	if policy == "" {
		policy = LockPolicyAdvisory
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EditorHub{
		eventLoop: newEventLoop(logger.WithFields(logrus.Fields{"component": "editor_hub", "lock_policy": policy})),
		registry:  NewRegistry(rooms),
		rooms:     rooms,
		locks:     NewLockArbiter(rooms),
		docs:      docs,
		policy:    policy,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Rooms 返回 Hub 使用的房间目录
func (h *EditorHub) Rooms() *RoomDirectory { return h.rooms }

// Run 启动 Hub 的主事件处理循环，直到 ctx 被取消。
// 它应该在一个单独的 goroutine 中运行。
func (h *EditorHub) Run(ctx context.Context) {
	h.run(ctx, h.handle, h.shutdown)
}

func (h *EditorHub) handle(msg HubMessage) {
	if msg.Client == nil {
		h.log.WithField("message_type", msg.Type).Error("Received hub message without client")
		return
	}
	switch msg.Type {
	case MessageRegister:
		h.registry.Register(msg.Client)
		h.log.WithField("connection_id", msg.Client.ID()).Info("Editor client registered")
	case MessageUnregister:
		h.unregisterClient(msg.Client)
	case MessageInbound:
		h.handleInbound(msg.Client, msg.RawData)
	default:
		h.log.Warnf("Received unknown message type: %s", msg.Type)
	}
}

// shutdown 关闭所有客户端的发送通道，让它们的写泵关闭连接
func (h *EditorHub) shutdown() {
	for _, c := range h.registry.Clients() {
		h.registry.Unregister(c)
		c.closeSend()
	}
}

func (h *EditorHub) unregisterClient(c *Client) {
	logCtx := h.log.WithField("connection_id", c.ID())
	left, ok := h.registry.Unregister(c)
	if !ok {
		logCtx.Debug("Unregister for unknown client ignored")
		c.closeSend()
		return
	}
	h.afterLeave(left)
	c.closeSend()
	logCtx.WithField("document_id", left.DocumentID).Info("Editor client unregistered")
}

// afterLeave 在持锁者离开后通知剩余成员锁已释放
func (h *EditorHub) afterLeave(left LeaveResult) {
	logCtx := h.log.WithField("document_id", left.DocumentID)
	if left.LockReleased && len(left.Remaining) > 0 {
		h.broadcastUnlocked(left.Remaining)
		logCtx.Info("Lock released because holder left the room")
	}
	if left.RoomDeleted {
		logCtx.Info("Room empty, removed from directory")
	}
}

func (h *EditorHub) handleInbound(c *Client, raw []byte) {
	logCtx := h.log.WithField("connection_id", c.ID())

	var msg dto.EditorMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logCtx.WithError(fmt.Errorf("%w: %v", service.ErrMalformedMessage, err)).Warn("Dropping editor message")
		return
	}
	if msg.FileName == "" {
		logCtx.WithError(service.ErrMalformedMessage).Warn("Dropping editor message without fileName")
		return
	}
	// "notes" 与 "notes.txt" 是同一个文件，房间和锁必须按同一个键归并
	documentID, err := repository.DocumentKey(msg.FileName)
	if err != nil {
		logCtx.WithError(fmt.Errorf("%w: %v", service.ErrMalformedMessage, err)).WithField("file_name", msg.FileName).Warn("Dropping editor message with invalid fileName")
		return
	}
	logCtx = logCtx.WithField("document_id", documentID)

	c.setName(msg.Author)

	changed, left := h.registry.SetDocument(c, documentID)
	if changed {
		if left.Left {
			h.afterLeave(left)
		}
		h.sendInitialLockState(c, documentID)
		logCtx.Debug("Client switched document")
	}

	room := h.rooms.Get(documentID)
	if room == nil || !room.Has(c) {
		logCtx.Debug("Message for a document without an active room dropped")
		return
	}

	if msg.HasContent() {
		h.publish(room, c, msg)
	}

	if msg.EditorFocus != nil {
		if *msg.EditorFocus {
			h.requestLock(c, documentID)
		} else {
			h.releaseLock(c, documentID, msg.HasText())
		}
	}
}

// sendInitialLockState 告诉刚加入房间的连接当前锁状态
func (h *EditorHub) sendInitialLockState(c *Client, documentID string) {
	room := h.rooms.Get(documentID)
	if room == nil {
		return
	}
	holder := room.LockHolder()
	var note dto.LockNotification
	if holder == nil {
		note = dto.NewLockNotification(false, "")
	} else {
		note = dto.NewLockNotification(holder != c, holder.Name())
	}
	if data := marshal(h.log, note); data != nil && !c.trySend(data) {
		h.log.WithField("connection_id", c.ID()).Warn("Client send channel full, initial lock state dropped")
	}
}

// publish 持久化内容并转发给房间内其他成员
func (h *EditorHub) publish(room *Room, c *Client, msg dto.EditorMessage) {
	logCtx := h.log.WithFields(logrus.Fields{"connection_id": c.ID(), "document_id": room.DocumentID})

	if h.policy == LockPolicyEnforced {
		if holder := room.LockHolder(); holder != nil && holder != c {
			logCtx.WithField("lock_holder", holder.ID()).Debug("Content from non-holder dropped by enforced lock policy")
			return
		}
	}

	author := msg.Author
	if author == "" {
		author = c.Name()
	}
	ts := dto.ParseClientDate(msg.Date)
	if ts.IsZero() {
		ts = h.now()
	}

	h.docs.PersistChange(domain.ChangeRecord{
		DocumentID: room.DocumentID,
		Author:     c.ID(),
		AuthorName: author,
		Content:    *msg.Content,
		Timestamp:  ts,
	})

	update := marshal(logCtx, dto.ContentUpdate{Content: *msg.Content, Author: author})
	fanOut(logCtx, room.Members(), update, c)
	logCtx.Debugf("Content broadcast to %d peers", room.Size()-1)
}

func (h *EditorHub) requestLock(c *Client, documentID string) {
	room, granted := h.locks.RequestLock(documentID, c)
	if !granted {
		h.log.WithFields(logrus.Fields{"connection_id": c.ID(), "document_id": documentID}).Debug("Lock request ignored, held by another client")
		return
	}
	author := c.Name()
	for _, member := range room.Members() {
		data := marshal(h.log, dto.NewLockNotification(member != c, author))
		if data != nil && !member.trySend(data) {
			h.log.WithField("receiver_connection_id", member.ID()).Warn("Client send channel full, lock notification dropped")
		}
	}
	h.log.WithFields(logrus.Fields{"connection_id": c.ID(), "document_id": documentID}).Info("Lock granted")
}

func (h *EditorHub) releaseLock(c *Client, documentID string, hasContent bool) {
	room, released := h.locks.ReleaseLock(documentID, c, hasContent)
	if !released {
		return
	}
	h.broadcastUnlocked(room.Members())
	h.log.WithFields(logrus.Fields{"connection_id": c.ID(), "document_id": documentID}).Info("Lock released")
}

func (h *EditorHub) broadcastUnlocked(members []*Client) {
	fanOut(h.log, members, marshal(h.log, dto.NewLockNotification(false, "")), nil)
}
