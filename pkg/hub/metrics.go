package hub

// Metrics 监控接口
type Metrics interface {
	// 连接指标
	IncrementConnections()
	DecrementConnections()
	SetConnectionCount(count int)

	// 房间指标
	SetRoomCount(count int)

	// 广播指标
	IncrementBroadcasts(envelopeType string)
	IncrementFailedSends()

	// 回收指标
	IncrementReapedSessions()
	IncrementExpiredTyping()
}

// NoopMetrics 空实现（默认）
type NoopMetrics struct{}

func (m *NoopMetrics) IncrementConnections()                  {}
func (m *NoopMetrics) DecrementConnections()                  {}
func (m *NoopMetrics) SetConnectionCount(count int)           {}
func (m *NoopMetrics) SetRoomCount(count int)                 {}
func (m *NoopMetrics) IncrementBroadcasts(envelopeType string) {}
func (m *NoopMetrics) IncrementFailedSends()                  {}
func (m *NoopMetrics) IncrementReapedSessions()               {}
func (m *NoopMetrics) IncrementExpiredTyping()                {}
