package hub

// LockArbiter 实现每个房间的互斥写锁状态机：Unlocked / LockedBy(c)。
// 先请求者获胜，没有排队，也没有超时。
type LockArbiter struct {
	rooms *RoomDirectory
}

// NewLockArbiter 创建 LockArbiter
func NewLockArbiter(rooms *RoomDirectory) *LockArbiter {
	if rooms == nil {
		panic("RoomDirectory cannot be nil for LockArbiter")
	}
	return &LockArbiter{rooms: rooms}
}

// RequestLock 在未锁定或 c 已持有锁时授予 c 锁。
// 锁被其他连接持有时忽略请求，返回 false。
func (a *LockArbiter) RequestLock(documentID string, c *Client) (*Room, bool) {
	return a.rooms.acquire(documentID, c)
}

// ReleaseLock 只在 c 是持锁者且释放消息不携带内容时释放锁
func (a *LockArbiter) ReleaseLock(documentID string, c *Client, hasContent bool) (*Room, bool) {
	if hasContent {
		return a.rooms.Get(documentID), false
	}
	return a.rooms.release(documentID, c)
}
