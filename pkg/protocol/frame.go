package protocol

// 客户端动作集合（封闭）
const (
	// ActionSendMessage 发送消息
	ActionSendMessage = "send_message"
	// ActionTyping 开始输入
	ActionTyping = "typing"
	// ActionStopTyping 停止输入
	ActionStopTyping = "stop_typing"
	// ActionGetParticipants 查询房间成员
	ActionGetParticipants = "get_participants"
)

// Frame 入站客户端帧
type Frame struct {
	// Action 动作名
	Action string `json:"action"`

	// Message 消息内容（send_message 时必填）
	Message string `json:"message,omitempty"`

	// Metadata 附加元数据
	Metadata map[string]any `json:"metadata,omitempty"`
}
