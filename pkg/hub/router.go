package hub

import (
	"go.uber.org/zap"
)

// Router 广播路由器
//
// 负责把信封投递给房间或 identity 的全部现存连接。投递基于注册表
// 的成员快照，在锁外逐个发送；单条连接失败只会导致它自己被移除，
// 绝不中断对其余接收者的投递，也不向调用方抛错。
type Router struct {
	registry *Registry
	presence *PresenceTracker
	typing   *TypingStore
	history  *History
	logger   *zap.Logger
	metrics  Metrics
}

// NewRouter 创建广播路由器
func NewRouter(registry *Registry, presence *PresenceTracker, typing *TypingStore, history *History, logger *zap.Logger, metrics Metrics) *Router {
	return &Router{
		registry: registry,
		presence: presence,
		typing:   typing,
		history:  history,
		logger:   logger,
		metrics:  metrics,
	}
}

// SendTo 向单个接收者尽力投递
//
// 接收者不存在是预期内的空操作；发送失败时把该连接从注册表移除，
// 后续广播不再指向它。
func (r *Router) SendTo(identity, roomID string, env *Envelope) {
	payload, err := env.Encode()
	if err != nil {
		r.logger.Error("编码信封失败", zap.String("type", string(env.Type)), zap.Error(err))
		return
	}
	r.sendPayload(identity, roomID, payload)
}

// BroadcastToRoom 向房间内全部成员广播
//
// exclude 非空时跳过该 identity。逐个投递，单个失败触发对应连接的
// 注销但不会短路循环。
func (r *Router) BroadcastToRoom(roomID string, env *Envelope, exclude string) {
	payload, err := env.Encode()
	if err != nil {
		r.logger.Error("编码信封失败", zap.String("type", string(env.Type)), zap.Error(err))
		return
	}

	r.metrics.IncrementBroadcasts(string(env.Type))

	for _, identity := range r.registry.MembersOf(roomID) {
		if exclude != "" && identity == exclude {
			continue
		}
		r.sendPayload(identity, roomID, payload)
	}
}

// BroadcastToIdentity 向 identity 当前所在的全部房间投递
func (r *Router) BroadcastToIdentity(identity string, env *Envelope) {
	payload, err := env.Encode()
	if err != nil {
		r.logger.Error("编码信封失败", zap.String("type", string(env.Type)), zap.Error(err))
		return
	}

	r.metrics.IncrementBroadcasts(string(env.Type))

	for _, roomID := range r.registry.RoomsOf(identity) {
		r.sendPayload(identity, roomID, payload)
	}
}

// Disconnect 注销连接并完成全部善后
//
// 移除注册表条目、清理输入指示、维护最后在线时间、释放空房间的
// 历史，并向房间其余成员广播离开事件。Unregister 的布尔返回保证
// 同一连接的离开事件最多广播一次。
func (r *Router) Disconnect(identity, roomID string) bool {
	return r.disconnect(identity, roomID, nil)
}

// DisconnectHandle 同 Disconnect，但仅在句柄仍是 h 时生效
func (r *Router) DisconnectHandle(identity, roomID string, h Sender) bool {
	return r.disconnect(identity, roomID, h)
}

func (r *Router) disconnect(identity, roomID string, h Sender) bool {
	if !r.registry.unregister(identity, roomID, h) {
		return false
	}

	r.metrics.DecrementConnections()
	r.metrics.SetConnectionCount(r.registry.ConnectionCount())
	r.metrics.SetRoomCount(r.registry.RoomCount())

	r.typing.ClearTyping(roomID, identity)

	if !r.registry.IsOnline(identity) {
		r.presence.MarkSeen(identity)
	}

	if len(r.registry.MembersOf(roomID)) == 0 {
		r.history.DropRoom(roomID)
	}

	r.logger.Info("连接已注销",
		zap.String("identity", identity),
		zap.String("room_id", roomID))

	r.BroadcastToRoom(roomID, NewLeftEnvelope(identity, roomID), identity)
	return true
}

// sendPayload 锁外投递单帧，失败即注销该连接
func (r *Router) sendPayload(identity, roomID string, payload []byte) {
	handle, ok := r.registry.Handle(identity, roomID)
	if !ok {
		return
	}

	if err := handle.Send(payload); err != nil {
		r.metrics.IncrementFailedSends()
		r.logger.Warn("投递失败，移除连接",
			zap.String("identity", identity),
			zap.String("room_id", roomID),
			zap.Error(err))
		// 按句柄条件移除，避免误伤并发重连产生的新连接
		r.disconnect(identity, roomID, handle)
	}
}
