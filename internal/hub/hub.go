package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// 单条消息的最大字节数（编辑器消息携带整个文档内容）
	maxMessageSize = 1 << 20

	// 每个客户端发送通道的缓冲大小
	sendBufferSize = 256

	// Hub 事件通道的缓冲大小
	eventBufferSize = 512
)

// HubMessage 类型
const (
	MessageRegister   = "register"
	MessageUnregister = "unregister"
	MessageInbound    = "inbound"
)

// HubMessage 定义了在 Hub 内部通道传递的事件
type HubMessage struct {
	Type    string  // MessageRegister / MessageUnregister / MessageInbound
	Client  *Client // 事件来源
	RawData []byte  // 仅 MessageInbound：原始 WebSocket 文本帧
}

// Dispatcher 是 Client 读泵投递事件的目标，由 EditorHub 和 ChatHub 实现
type Dispatcher interface {
	// Enqueue 非阻塞地投递一条入站消息，队列满时返回 false
	Enqueue(msg HubMessage) bool
	// Unregister 阻塞直到 Hub 接收注销事件或 Hub 已停止
	Unregister(c *Client)
}

// eventLoop 是两个 Hub 共用的单 goroutine 事件循环。
// 所有事件在同一个 goroutine 中逐个处理完毕，房间和锁状态因此无需额外同步。
type eventLoop struct {
	messageChan chan HubMessage
	done        chan struct{}
	log         *logrus.Entry
}

func newEventLoop(log *logrus.Entry) *eventLoop {
	return &eventLoop{
		messageChan: make(chan HubMessage, eventBufferSize),
		done:        make(chan struct{}),
		log:         log,
	}
}

// run 处理事件直到 ctx 取消，退出前调用 shutdown
func (l *eventLoop) run(ctx context.Context, handle func(HubMessage), shutdown func()) {
	l.log.Info("Hub is running...")
	defer func() {
		shutdown()
		close(l.done)
		l.log.Info("Hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			l.log.Info("Hub is shutting down...")
			return
		case msg := <-l.messageChan:
			handle(msg)
		}
	}
}

// Enqueue 将入站消息放入 Hub 的处理队列 (非阻塞)
func (l *eventLoop) Enqueue(msg HubMessage) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.messageChan <- msg:
		return true
	default:
		fields := logrus.Fields{"message_type": msg.Type}
		if msg.Client != nil {
			fields["connection_id"] = msg.Client.ID()
		}
		l.log.WithFields(fields).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Register 阻塞地投递注册事件。Hub 已停止时返回 false。
func (l *eventLoop) Register(c *Client) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.messageChan <- HubMessage{Type: MessageRegister, Client: c}:
		return true
	case <-l.done:
		return false
	}
}

// Unregister 阻塞地投递注销事件。
// 注销不能丢失，否则客户端持有的锁永远不会释放。
func (l *eventLoop) Unregister(c *Client) {
	select {
	case l.messageChan <- HubMessage{Type: MessageUnregister, Client: c}:
	case <-l.done:
	}
}

// Done 在事件循环退出后关闭
func (l *eventLoop) Done() <-chan struct{} { return l.done }

// marshal 序列化出站消息，失败时记录日志并返回 nil
func marshal(log *logrus.Entry, v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("Failed to marshal outbound message")
		return nil
	}
	return data
}

// fanOut 将消息非阻塞地发送给 recipients 中除 sender 以外的所有客户端。
// 发送通道已满的客户端被跳过，它会在自己的断开事件中被清理。
func fanOut(log *logrus.Entry, recipients []*Client, message []byte, sender *Client) {
	if message == nil {
		return
	}
	for _, client := range recipients {
		if client == sender {
			continue
		}
		if !client.trySend(message) {
			log.WithField("receiver_connection_id", client.ID()).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}
