package protocol

import (
	"context"
	"errors"
	"time"
)

// 协作方错误
//
// Dispatcher 通过 errors.Is 把它们映射到对应的关闭码，协作方的
// 实现应当包装或直接返回这些哨兵错误。
var (
	ErrInvalidToken     = errors.New("protocol: missing or invalid token")
	ErrIdentityNotFound = errors.New("protocol: identity not found or inactive")
	ErrRoomNotFound     = errors.New("protocol: room not found")
	ErrAccessDenied     = errors.New("protocol: access denied")
)

// Principal 通过认证的主体
type Principal struct {
	Identity    string
	DisplayName string
	Role        string
}

// Authenticator 令牌校验协作方
type Authenticator interface {
	// Verify 校验令牌并返回主体，失败返回 ErrInvalidToken 或
	// ErrIdentityNotFound
	Verify(ctx context.Context, token string) (*Principal, error)
}

// RoomDirectory 房间授权协作方
type RoomDirectory interface {
	// Authorize 校验主体对房间的访问权，失败返回 ErrRoomNotFound
	// 或 ErrAccessDenied
	Authorize(ctx context.Context, p *Principal, roomID string) error
}

// StoredMessage 持久化后的消息
type StoredMessage struct {
	ID         string
	RoomID     string
	SenderID   string
	SenderName string
	Content    string
	Metadata   map[string]any
	CreatedAt  time.Time
	IsEdited   bool
}

// MessageStore 消息持久化协作方
//
// 本子系统不落库，send_message 动作先经由它持久化，再广播返回的
// 完整消息。
type MessageStore interface {
	Persist(ctx context.Context, roomID string, sender *Principal, content string, metadata map[string]any) (*StoredMessage, error)
}

// closeCodeFor 把协作方错误映射到关闭码
func closeCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidToken):
		return CloseInvalidToken
	case errors.Is(err, ErrIdentityNotFound):
		return CloseIdentityNotFound
	case errors.Is(err, ErrRoomNotFound):
		return CloseRoomNotFound
	case errors.Is(err, ErrAccessDenied):
		return CloseAccessDenied
	default:
		return CloseInternalError
	}
}
