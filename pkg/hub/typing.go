package hub

import (
	"sync"
	"time"
)

// TypingStore 输入指示存储
//
// 按 (room, identity) 维护"开始输入"时间戳，完全独立于注册表，
// 只与其共享房间 ID 的命名空间。条目在收到停止输入信号或超过
// 空闲阈值（由 Reaper 清扫）时移除。
type TypingStore struct {
	mu    sync.RWMutex
	rooms map[string]map[string]time.Time // roomID -> identity -> 开始输入时间
}

// NewTypingStore 创建输入指示存储
func NewTypingStore() *TypingStore {
	return &TypingStore{
		rooms: make(map[string]map[string]time.Time),
	}
}

// SetTyping 记录或刷新输入状态
func (s *TypingStore) SetTyping(roomID, identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byIdentity, ok := s.rooms[roomID]
	if !ok {
		byIdentity = make(map[string]time.Time)
		s.rooms[roomID] = byIdentity
	}
	byIdentity[identity] = time.Now()
}

// ClearTyping 清除输入状态，条目不存在时是无害的空操作
func (s *TypingStore) ClearTyping(roomID, identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	byIdentity, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := byIdentity[identity]; !ok {
		return false
	}

	delete(byIdentity, identity)
	if len(byIdentity) == 0 {
		delete(s.rooms, roomID)
	}
	return true
}

// setStartedAt 回拨开始输入时间，测试构造过期指示时使用
func (s *TypingStore) setStartedAt(roomID, identity string, t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byIdentity, ok := s.rooms[roomID]; ok {
		if _, ok := byIdentity[identity]; ok {
			byIdentity[identity] = t
			return true
		}
	}
	return false
}

// Expired 返回指定房间内开始输入时间早于 now-threshold 的 identity
func (s *TypingStore) Expired(roomID string, threshold time.Duration, now time.Time) []string {
	deadline := now.Add(-threshold)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for identity, startedAt := range s.rooms[roomID] {
		if startedAt.Before(deadline) {
			out = append(out, identity)
		}
	}
	return out
}

// ExpiredAll 返回所有房间中过期的输入指示快照，供 Reaper 清扫
func (s *TypingStore) ExpiredAll(threshold time.Duration, now time.Time) map[string][]string {
	deadline := now.Add(-threshold)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string)
	for roomID, byIdentity := range s.rooms {
		for identity, startedAt := range byIdentity {
			if startedAt.Before(deadline) {
				out[roomID] = append(out[roomID], identity)
			}
		}
	}
	return out
}
