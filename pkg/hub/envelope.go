package hub

import (
	"encoding/json"
	"time"
)

// EnvelopeType 信封类型
//
// 类型集合是封闭的，客户端按类型区分处理逻辑，扩展时只允许新增类型。
type EnvelopeType string

const (
	// TypeConnectionEstablished 连接建立确认（仅发给新连接）
	TypeConnectionEstablished EnvelopeType = "connection_established"
	// TypeUserJoined 用户加入房间
	TypeUserJoined EnvelopeType = "user_joined"
	// TypeUserLeft 用户离开房间
	TypeUserLeft EnvelopeType = "user_left"
	// TypeNewMessage 新消息
	TypeNewMessage EnvelopeType = "new_message"
	// TypeMessageUpdated 消息已编辑
	TypeMessageUpdated EnvelopeType = "message_updated"
	// TypeMessageDeleted 消息已删除
	TypeMessageDeleted EnvelopeType = "message_deleted"
	// TypeSystemMessage 系统消息
	TypeSystemMessage EnvelopeType = "system_message"
	// TypeTypingIndicator 正在输入指示
	TypeTypingIndicator EnvelopeType = "typing_indicator"
	// TypeParticipantsList 房间成员列表
	TypeParticipantsList EnvelopeType = "participants_list"
	// TypeFeedbackRequest 满意度反馈请求
	TypeFeedbackRequest EnvelopeType = "feedback_request"
	// TypeError 协议错误
	TypeError EnvelopeType = "error"
)

// Envelope 广播的基本单元
//
// Envelope 只在内存中流转，本子系统不做任何持久化。
type Envelope struct {
	// Type 信封类型
	Type EnvelopeType `json:"type"`

	// Data 类型相关的负载
	Data any `json:"data,omitempty"`

	// Timestamp 生成时间（Unix 秒）
	Timestamp int64 `json:"timestamp"`
}

// NewEnvelope 创建信封
func NewEnvelope(t EnvelopeType, data any) *Envelope {
	return &Envelope{
		Type:      t,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// Encode 序列化为 JSON
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// JoinData user_joined / user_left 负载
type JoinData struct {
	Identity string `json:"identity"`
	RoomID   string `json:"room_id"`
}

// TypingData typing_indicator 负载
type TypingData struct {
	Identity  string `json:"identity"`
	IsTyping  bool   `json:"is_typing"`
	RoomID    string `json:"room_id"`
	Timestamp int64  `json:"timestamp"`
}

// EstablishedData connection_established 负载
type EstablishedData struct {
	Identity     string   `json:"identity"`
	RoomID       string   `json:"room_id"`
	Participants []string `json:"participants"`
}

// Participant 带在线状态的房间成员
type Participant struct {
	Identity string     `json:"identity"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// ParticipantsData participants_list 负载
type ParticipantsData struct {
	RoomID       string        `json:"room_id"`
	Participants []Participant `json:"participants"`
}

// MessageData new_message / message_updated 负载
//
// 消息的持久化由外部协作方完成，这里只承载广播所需的完整展示字段。
type MessageData struct {
	ID         string         `json:"id"`
	RoomID     string         `json:"room_id"`
	SenderID   string         `json:"sender_id"`
	SenderName string         `json:"sender_name,omitempty"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  int64          `json:"created_at"`
	IsEdited   bool           `json:"is_edited"`
}

// SystemData system_message 负载
type SystemData struct {
	ID       string         `json:"id"`
	RoomID   string         `json:"room_id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FeedbackData feedback_request 负载
type FeedbackData struct {
	RoomID string `json:"room_id"`
	Prompt string `json:"prompt,omitempty"`
}

// ErrorData error 负载
type ErrorData struct {
	Message string `json:"message"`
}

// NewTypingEnvelope 创建输入指示信封
func NewTypingEnvelope(identity, roomID string, isTyping bool) *Envelope {
	return NewEnvelope(TypeTypingIndicator, TypingData{
		Identity:  identity,
		IsTyping:  isTyping,
		RoomID:    roomID,
		Timestamp: time.Now().Unix(),
	})
}

// NewJoinedEnvelope 创建用户加入信封
func NewJoinedEnvelope(identity, roomID string) *Envelope {
	return NewEnvelope(TypeUserJoined, JoinData{Identity: identity, RoomID: roomID})
}

// NewLeftEnvelope 创建用户离开信封
func NewLeftEnvelope(identity, roomID string) *Envelope {
	return NewEnvelope(TypeUserLeft, JoinData{Identity: identity, RoomID: roomID})
}

// NewErrorEnvelope 创建协议错误信封
func NewErrorEnvelope(message string) *Envelope {
	return NewEnvelope(TypeError, ErrorData{Message: message})
}
