package hub

import "errors"

// 错误定义
var (
	// 连接相关错误
	ErrConnectionClosed = errors.New("hub: connection closed")
	ErrSendQueueFull    = errors.New("hub: send queue full")

	// 配置相关错误
	ErrInvalidConfig = errors.New("hub: invalid config")
)
