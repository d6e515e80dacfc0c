package hub

import (
	"sync"
	"time"
)

// PresenceSnapshot 某个 identity 的在线状态
type PresenceSnapshot struct {
	Identity string     `json:"identity"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// PresenceTracker 在线状态跟踪器
//
// 在线与否直接派生自注册表，没有独立的在线存储；
// 只额外维护最后在线时间，在 identity 的最后一条连接被移除时写入。
type PresenceTracker struct {
	registry *Registry

	mu       sync.RWMutex
	lastSeen map[string]time.Time
}

// NewPresenceTracker 创建在线状态跟踪器
func NewPresenceTracker(registry *Registry) *PresenceTracker {
	return &PresenceTracker{
		registry: registry,
		lastSeen: make(map[string]time.Time),
	}
}

// MarkSeen 记录 identity 的最后在线时间
//
// 仅在其最后一条连接被移除时调用（由 Router 的断开路径保证）。
func (p *PresenceTracker) MarkSeen(identity string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeen[identity] = time.Now()
}

// Snapshot 返回 identity 的在线状态快照
func (p *PresenceTracker) Snapshot(identity string) PresenceSnapshot {
	snap := PresenceSnapshot{
		Identity: identity,
		IsOnline: p.registry.IsOnline(identity),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if ts, ok := p.lastSeen[identity]; ok {
		t := ts
		snap.LastSeen = &t
	}
	return snap
}

// IsOnline 检查 identity 是否在线
func (p *PresenceTracker) IsOnline(identity string) bool {
	return p.registry.IsOnline(identity)
}
