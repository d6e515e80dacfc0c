package hub

import (
	"sync"
	"time"
)

// Sender 传输句柄
//
// 代表一条活跃客户端连接的可发送端点，一次接收一帧，可能失败。
// 发送失败由调用方负责将连接从注册表中移除。
type Sender interface {
	// Send 发送一帧数据（非阻塞语义，队列满返回错误）
	Send(data []byte) error
	// Close 携带关闭码与原因关闭连接
	Close(code int, reason string) error
}

// Connection 一条活跃连接的快照
type Connection struct {
	Identity    string
	RoomID      string
	Handle      Sender
	ConnectedAt time.Time
	LastActive  time.Time
}

// entry 注册表内部条目，由 Registry 的锁保护
type entry struct {
	handle      Sender
	connectedAt time.Time
	lastActive  time.Time
}

// Registry 连接注册表
//
// 独占持有 (identity, room) -> 传输句柄 的映射，以及由此派生的
// identity->room、room->identity 两个索引。所有变更与快照读取都在
// 同一把锁下完成；实际的网络发送发生在锁外（见 Router）。
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]*entry    // identity -> roomID -> entry
	rooms map[string]map[string]struct{}  // roomID -> identity 集合
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]map[string]*entry),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register 注册连接
//
// 同一 (identity, room) 重复注册采用后写覆盖，返回被替换的旧句柄，
// 由调用方决定如何关闭它；首次注册返回 nil。
func (r *Registry) Register(identity, roomID string, h Sender) Sender {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	byRoom, ok := r.conns[identity]
	if !ok {
		byRoom = make(map[string]*entry)
		r.conns[identity] = byRoom
	}

	var replaced Sender
	if old, ok := byRoom[roomID]; ok {
		replaced = old.handle
	}
	byRoom[roomID] = &entry{handle: h, connectedAt: now, lastActive: now}

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[identity] = struct{}{}

	return replaced
}

// Unregister 移除连接
//
// 返回是否真的移除了条目，调用方据此区分真实断开与重复调用，
// 避免重复广播离开事件。房间成员清空后整个房间索引一并删除。
func (r *Registry) Unregister(identity, roomID string) bool {
	return r.unregister(identity, roomID, nil)
}

// UnregisterHandle 仅在当前句柄仍是 h 时移除连接
//
// 重连把旧句柄覆盖之后，旧连接的收尾路径不能把新连接注销掉，
// 因此按句柄做条件移除。
func (r *Registry) UnregisterHandle(identity, roomID string, h Sender) bool {
	return r.unregister(identity, roomID, h)
}

// unregister h 为 nil 时无条件移除，否则要求句柄匹配
func (r *Registry) unregister(identity, roomID string, h Sender) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	byRoom, ok := r.conns[identity]
	if !ok {
		return false
	}
	e, ok := byRoom[roomID]
	if !ok {
		return false
	}
	if h != nil && e.handle != h {
		return false
	}

	delete(byRoom, roomID)
	if len(byRoom) == 0 {
		delete(r.conns, identity)
	}

	if members, ok := r.rooms[roomID]; ok {
		delete(members, identity)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}

	return true
}

// Touch 刷新连接的最后活跃时间
func (r *Registry) Touch(identity, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.conns[identity][roomID]; ok {
		e.lastActive = time.Now()
		return true
	}
	return false
}

// setLastActive 回拨连接活跃时间，测试构造空闲会话时使用
func (r *Registry) setLastActive(identity, roomID string, t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.conns[identity][roomID]; ok {
		e.lastActive = t
		return true
	}
	return false
}

// Handle 获取连接句柄
func (r *Registry) Handle(identity, roomID string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.conns[identity][roomID]; ok {
		return e.handle, true
	}
	return nil, false
}

// MembersOf 返回房间成员快照
//
// 返回副本而不是活视图：广播过程中失败连接会被并发移除，
// 在快照上迭代才是安全的。房间不存在时返回空切片。
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	out := make([]string, 0, len(members))
	for identity := range members {
		out = append(out, identity)
	}
	return out
}

// RoomsOf 返回 identity 所在房间的快照
func (r *Registry) RoomsOf(identity string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byRoom := r.conns[identity]
	out := make([]string, 0, len(byRoom))
	for roomID := range byRoom {
		out = append(out, roomID)
	}
	return out
}

// IsOnline 检查 identity 是否存在任意活跃连接
func (r *Registry) IsOnline(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns[identity]) > 0
}

// OnlineIdentities 返回所有在线 identity 的快照
func (r *Registry) OnlineIdentities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.conns))
	for identity := range r.conns {
		out = append(out, identity)
	}
	return out
}

// IdlePair 空闲连接对
type IdlePair struct {
	Identity string
	RoomID   string
}

// IdlePairs 返回最后活跃时间早于 now-timeout 的连接快照
func (r *Registry) IdlePairs(timeout time.Duration, now time.Time) []IdlePair {
	deadline := now.Add(-timeout)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []IdlePair
	for identity, byRoom := range r.conns {
		for roomID, e := range byRoom {
			if e.lastActive.Before(deadline) {
				out = append(out, IdlePair{Identity: identity, RoomID: roomID})
			}
		}
	}
	return out
}

// ConnectionCount 当前连接总数
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, byRoom := range r.conns {
		count += len(byRoom)
	}
	return count
}

// RoomCount 当前房间总数
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
