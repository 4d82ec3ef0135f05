package hub

import (
	"sort"
	"sync"
)

// Room 是与某个文档关联的连接集合及该文档的锁状态。
// 字段只通过 RoomDirectory 的方法修改。
type Room struct {
	DocumentID string
	members    map[*Client]struct{}
	lockHolder *Client
}

// Has 判断连接是否为房间成员
func (r *Room) Has(c *Client) bool {
	_, ok := r.members[c]
	return ok
}

// Size 返回成员数量
func (r *Room) Size() int { return len(r.members) }

// LockHolder 返回当前持锁的连接，未锁定时为 nil
func (r *Room) LockHolder() *Client { return r.lockHolder }

// Members 返回成员列表的副本
func (r *Room) Members() []*Client {
	out := make([]*Client, 0, len(r.members))
	for c := range r.members {
		out = append(out, c)
	}
	return out
}

// LeaveResult 描述一次 Leave 的结果
type LeaveResult struct {
	DocumentID   string
	Left         bool      // 连接确实是成员并已移除
	LockReleased bool      // 离开的连接持有锁，锁已被释放
	RoomDeleted  bool      // 房间因此变空并被删除
	Remaining    []*Client // 离开后剩余的成员
}

// RoomInfo 是房间状态的只读快照，供 HTTP 接口使用
type RoomInfo struct {
	DocumentID string   `json:"documentId"`
	Members    []string `json:"members"`
	LockHolder string   `json:"lockHolder,omitempty"`
}

// RoomDirectory 按文档 ID 管理房间。
// 每个方法在目录锁内一次完成，Hub goroutine 之外的读者（HTTP、定时任务）也能安全读取。
type RoomDirectory struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	onClosed func(documentID string)
}

// NewRoomDirectory 创建一个空的房间目录
func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[string]*Room)}
}

// OnRoomClosed 注册房间被删除后的回调。回调在 Hub goroutine 中执行，不能阻塞。
func (d *RoomDirectory) OnRoomClosed(fn func(documentID string)) {
	d.mu.Lock()
	d.onClosed = fn
	d.mu.Unlock()
}

// Join 将连接加入文档房间，房间不存在时创建
func (d *RoomDirectory) Join(documentID string, c *Client) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[documentID]
	if !ok {
		room = &Room{DocumentID: documentID, members: make(map[*Client]struct{})}
		d.rooms[documentID] = room
	}
	room.members[c] = struct{}{}
	return room
}

// Leave 将连接移出房间。持锁者离开时锁总是被释放；房间变空时被删除。
func (d *RoomDirectory) Leave(documentID string, c *Client) LeaveResult {
	res := LeaveResult{DocumentID: documentID}

	d.mu.Lock()
	room, ok := d.rooms[documentID]
	if !ok || !room.Has(c) {
		d.mu.Unlock()
		return res
	}
	delete(room.members, c)
	res.Left = true
	if room.lockHolder == c {
		room.lockHolder = nil
		res.LockReleased = true
	}
	if len(room.members) == 0 {
		delete(d.rooms, documentID)
		res.RoomDeleted = true
	} else {
		res.Remaining = room.Members()
	}
	onClosed := d.onClosed
	d.mu.Unlock()

	if res.RoomDeleted && onClosed != nil {
		onClosed(documentID)
	}
	return res
}

// Get 返回文档的房间，不存在时返回 nil
func (d *RoomDirectory) Get(documentID string) *Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rooms[documentID]
}

// Len 返回活跃房间数量
func (d *RoomDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// ActiveDocumentIDs 返回所有活跃房间的文档 ID（已排序）
func (d *RoomDirectory) ActiveDocumentIDs() []string {
	d.mu.RLock()
	ids := make([]string, 0, len(d.rooms))
	for id := range d.rooms {
		ids = append(ids, id)
	}
	d.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Snapshot 返回所有房间的只读快照（按文档 ID 排序）
func (d *RoomDirectory) Snapshot() []RoomInfo {
	d.mu.RLock()
	infos := make([]RoomInfo, 0, len(d.rooms))
	for id, room := range d.rooms {
		info := RoomInfo{DocumentID: id, Members: make([]string, 0, len(room.members))}
		for c := range room.members {
			info.Members = append(info.Members, c.Name())
		}
		sort.Strings(info.Members)
		if room.lockHolder != nil {
			info.LockHolder = room.lockHolder.Name()
		}
		infos = append(infos, info)
	}
	d.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].DocumentID < infos[j].DocumentID })
	return infos
}

// acquire 在 Unlocked 或由 c 持有时把锁交给 c
func (d *RoomDirectory) acquire(documentID string, c *Client) (*Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[documentID]
	if !ok || !room.Has(c) {
		return room, false
	}
	if room.lockHolder != nil && room.lockHolder != c {
		return room, false
	}
	room.lockHolder = c
	return room, true
}

// release 仅当 c 是持锁者时释放锁
func (d *RoomDirectory) release(documentID string, c *Client) (*Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[documentID]
	if !ok || room.lockHolder != c {
		return room, false
	}
	room.lockHolder = nil
	return room, true
}
