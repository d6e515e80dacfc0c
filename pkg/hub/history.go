package hub

import "sync"

// History 有界的房间消息历史
//
// 每个房间保留最近 limit 条消息类信封，超出即丢弃最旧的。
// 历史只存在于内存中，房间清空时随房间一起释放。
type History struct {
	mu    sync.RWMutex
	limit int
	rooms map[string][]*Envelope
}

// NewHistory 创建消息历史
func NewHistory(limit int) *History {
	return &History{
		limit: limit,
		rooms: make(map[string][]*Envelope),
	}
}

// Append 追加一条信封
func (h *History) Append(roomID string, env *Envelope) {
	if h.limit <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := append(h.rooms[roomID], env)
	if len(msgs) > h.limit {
		msgs = msgs[len(msgs)-h.limit:]
	}
	h.rooms[roomID] = msgs
}

// Recent 返回房间最近 n 条信封的副本，n<=0 时返回全部
func (h *History) Recent(roomID string, n int) []*Envelope {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msgs := h.rooms[roomID]
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]*Envelope, len(msgs))
	copy(out, msgs)
	return out
}

// DropRoom 丢弃整个房间的历史
func (h *History) DropRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomID)
}
