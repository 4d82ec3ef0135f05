package hub

import "sync"

// Registry 维护已注册连接以及连接到文档的映射。
// 连接的文档归属只通过 SetDocument 修改。
type Registry struct {
	rooms *RoomDirectory

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewRegistry 创建 Registry
func NewRegistry(rooms *RoomDirectory) *Registry {
	if rooms == nil {
		panic("RoomDirectory cannot be nil for Registry")
	}
	return &Registry{rooms: rooms, clients: make(map[*Client]struct{})}
}

// Register 添加一个尚未归属任何文档的连接
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
}

// SetDocument 把连接切换到 documentID：先离开旧房间，再加入新房间。
// 文档未变化或连接未注册时不做任何事，changed 为 false。
// left 描述离开旧房间的结果（没有旧房间时为零值）。
func (r *Registry) SetDocument(c *Client, documentID string) (changed bool, left LeaveResult) {
	if !r.Has(c) || c.documentID == documentID {
		return false, LeaveResult{}
	}
	if c.documentID != "" {
		left = r.rooms.Leave(c.documentID, c)
	}
	r.rooms.Join(documentID, c)
	c.documentID = documentID
	return true, left
}

// Unregister 让连接离开所在房间并移除。未知连接返回 ok=false。
func (r *Registry) Unregister(c *Client) (left LeaveResult, ok bool) {
	r.mu.Lock()
	_, ok = r.clients[c]
	delete(r.clients, c)
	r.mu.Unlock()
	if !ok {
		return LeaveResult{}, false
	}
	if c.documentID != "" {
		left = r.rooms.Leave(c.documentID, c)
		c.documentID = ""
	}
	return left, true
}

// Has 判断连接是否已注册
func (r *Registry) Has(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[c]
	return ok
}

// Len 返回已注册连接数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Clients 返回已注册连接的副本
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}
