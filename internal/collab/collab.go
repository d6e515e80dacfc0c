// Package collab 协作方接口的内存实现。
//
// 供本地运行与测试使用：令牌即身份、房间全放行、消息存内存。
// 生产部署应替换为接入真实账号体系与持久化存储的实现。
package collab

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tokmz/relay/pkg/protocol"
)

// TokenAuthenticator 把令牌直接当作身份标识
//
// 空令牌视为无效。显示名与身份相同，角色固定为 user。
type TokenAuthenticator struct{}

func (TokenAuthenticator) Verify(_ context.Context, token string) (*protocol.Principal, error) {
	if token == "" {
		return nil, protocol.ErrInvalidToken
	}
	return &protocol.Principal{
		Identity:    token,
		DisplayName: token,
		Role:        "user",
	}, nil
}

// OpenRoomDirectory 放行全部房间
type OpenRoomDirectory struct{}

func (OpenRoomDirectory) Authorize(_ context.Context, _ *protocol.Principal, roomID string) error {
	if roomID == "" {
		return protocol.ErrRoomNotFound
	}
	return nil
}

// MemoryMessageStore 内存消息存储
type MemoryMessageStore struct {
	mu   sync.Mutex
	msgs map[string][]*protocol.StoredMessage
}

// NewMemoryMessageStore 创建内存消息存储
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{
		msgs: make(map[string][]*protocol.StoredMessage),
	}
}

// Persist 保存一条消息并分配 ID
func (m *MemoryMessageStore) Persist(_ context.Context, roomID string, sender *protocol.Principal, content string, metadata map[string]any) (*protocol.StoredMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := &protocol.StoredMessage{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderID:   sender.Identity,
		SenderName: sender.DisplayName,
		Content:    content,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}
	m.msgs[roomID] = append(m.msgs[roomID], msg)
	return msg, nil
}

// Messages 返回房间内已保存消息的快照
func (m *MemoryMessageStore) Messages(roomID string) []*protocol.StoredMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*protocol.StoredMessage, len(m.msgs[roomID]))
	copy(out, m.msgs[roomID])
	return out
}
