package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
type Client struct {
	id   string          // 连接 ID，连接建立时生成，不会复用
	hub  Dispatcher      // 所属的 Hub
	conn *websocket.Conn // WebSocket 连接，测试中可以为 nil
	send chan []byte     // 发往此客户端的缓冲通道
	log  *logrus.Entry

	// documentID 只由 Registry.SetDocument 在 Hub goroutine 中修改
	documentID string

	mu     sync.RWMutex
	name   string // 显示名：编辑器中为客户端最近声明的 author，聊天中为 ?name=
	closed bool
}

// NewClient 创建一个新的 Client 实例，name 为空时使用连接 ID
func NewClient(hub Dispatcher, conn *websocket.Conn, name string, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	id := uuid.NewString()
	if name == "" {
		name = id
	}
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		name: name,
		log:  logger.WithField("connection_id", id),
	}
}

func (c *Client) ID() string         { return c.id }
func (c *Client) DocumentID() string { return c.documentID }

// Name 返回客户端当前的显示名
func (c *Client) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Client) setName(name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

// Outbound 返回发送通道，供写泵和测试读取
func (c *Client) Outbound() <-chan []byte { return c.send }

// trySend 非阻塞地放入一条消息，通道已满或已关闭时返回 false
func (c *Client) trySend(message []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend 关闭发送通道，写泵随后发送关闭帧并退出。可重复调用。
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump 将消息从 WebSocket 连接泵送到 Hub。
// 它在自己的 goroutine 中运行，退出时向 Hub 注销此客户端。
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.log.Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.log.Debug("WebSocket connection closed")
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.log.Debugf("Received non-text message type: %d", messageType)
			continue
		}
		c.hub.Enqueue(HubMessage{Type: MessageInbound, Client: c, RawData: message})
	}
}

// WritePump 将消息从 send 通道泵送到 WebSocket 连接，并定期发送 Ping。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了发送通道
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("Failed to send ping message")
				return
			}
		}
	}
}
