package hub

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"collaborative-editor/internal/domain"
)

// recordingPersister 记录所有持久化请求
type recordingPersister struct {
	mu      sync.Mutex
	records []domain.ChangeRecord
}

func (p *recordingPersister) PersistChange(record domain.ChangeRecord) {
	p.mu.Lock()
	p.records = append(p.records, record)
	p.mu.Unlock()
}

func (p *recordingPersister) Records() []domain.ChangeRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ChangeRecord(nil), p.records...)
}

type handler interface {
	handle(HubMessage)
}

func newTestClient(d Dispatcher, name string) *Client {
	return NewClient(d, nil, name, nil)
}

func register(h handler, c *Client) {
	h.handle(HubMessage{Type: MessageRegister, Client: c})
}

func unregister(h handler, c *Client) {
	h.handle(HubMessage{Type: MessageUnregister, Client: c})
}

func inbound(t *testing.T, h handler, c *Client, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	h.handle(HubMessage{Type: MessageInbound, Client: c, RawData: data})
}

// drainRaw 取出客户端发送通道中当前的全部消息
func drainRaw(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

// drain 取出全部消息并解码为 JSON 对象
func drain(t *testing.T, c *Client) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, raw := range drainRaw(c) {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &m), "unexpected frame %s", raw)
		out = append(out, m)
	}
	return out
}

func lockMsg(locked bool, author string) map[string]interface{} {
	m := map[string]interface{}{"type": "lock", "locked": locked}
	if author != "" {
		m["author"] = author
	}
	return m
}

func isClosed(c *Client) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
