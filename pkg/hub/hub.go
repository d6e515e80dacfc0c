package hub

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub 实时连接与广播中枢
//
// 把注册表、在线状态、输入指示、广播路由与清扫器组装成一个显式
// 构造的服务实例，由进程启动时创建并以引用传入各连接处理协程；
// 清扫器的启停是显式的生命周期调用，没有任何包级单例。
type Hub struct {
	registry *Registry
	presence *PresenceTracker
	typing   *TypingStore
	history  *History
	router   *Router
	reaper   *Reaper

	config  *Config
	logger  *zap.Logger
	metrics Metrics
}

// New 创建 Hub
func New(opts ...Option) (*Hub, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Metrics == nil {
		config.Metrics = &NoopMetrics{}
	}

	registry := NewRegistry()
	presence := NewPresenceTracker(registry)
	typing := NewTypingStore()
	history := NewHistory(config.HistoryLimit)
	router := NewRouter(registry, presence, typing, history, config.Logger, config.Metrics)
	reaper := NewReaper(registry, typing, router, config, config.Logger, config.Metrics)

	return &Hub{
		registry: registry,
		presence: presence,
		typing:   typing,
		history:  history,
		router:   router,
		reaper:   reaper,
		config:   config,
		logger:   config.Logger,
		metrics:  config.Metrics,
	}, nil
}

// Start 启动后台清扫器
func (h *Hub) Start() {
	h.reaper.Start()
}

// Stop 停止后台清扫器并等待其退出
func (h *Hub) Stop() {
	h.reaper.Stop()
}

// Join 注册连接
//
// 返回加入后的房间成员快照（含自己）以及被替换的旧句柄；同一
// (identity, room) 重连时旧句柄由调用方负责关闭。加入事件的广播
// 由调用方在发送连接确认之后通过 AnnounceJoin 触发。
func (h *Hub) Join(identity, roomID string, handle Sender) (members []string, replaced Sender) {
	replaced = h.registry.Register(identity, roomID, handle)

	h.metrics.IncrementConnections()
	h.metrics.SetConnectionCount(h.registry.ConnectionCount())
	h.metrics.SetRoomCount(h.registry.RoomCount())

	h.logger.Info("连接已注册",
		zap.String("identity", identity),
		zap.String("room_id", roomID),
		zap.Bool("replaced", replaced != nil))

	return h.registry.MembersOf(roomID), replaced
}

// AnnounceJoin 向房间其余成员广播加入事件
func (h *Hub) AnnounceJoin(identity, roomID string) {
	h.router.BroadcastToRoom(roomID, NewJoinedEnvelope(identity, roomID), identity)
}

// Leave 注销连接并广播离开事件
//
// 返回是否真的移除了连接；重复调用返回 false 且不会重复广播。
func (h *Hub) Leave(identity, roomID string) bool {
	return h.router.Disconnect(identity, roomID)
}

// LeaveHandle 同 Leave，但仅在句柄仍是 handle 时生效
//
// 重连覆盖后旧连接的收尾路径使用，避免把新连接注销掉。
func (h *Hub) LeaveHandle(identity, roomID string, handle Sender) bool {
	return h.router.DisconnectHandle(identity, roomID, handle)
}

// Touch 刷新连接的最后活跃时间，每收到一帧调用一次
func (h *Hub) Touch(identity, roomID string) {
	h.registry.Touch(identity, roomID)
}

// Typing 更新输入状态并向房间其余成员广播指示
func (h *Hub) Typing(identity, roomID string, isTyping bool) {
	if isTyping {
		h.typing.SetTyping(roomID, identity)
	} else {
		h.typing.ClearTyping(roomID, identity)
	}
	h.router.BroadcastToRoom(roomID, NewTypingEnvelope(identity, roomID, isTyping), identity)
}

// BroadcastMessage 广播一条消息并写入房间历史
func (h *Hub) BroadcastMessage(roomID string, data MessageData) {
	env := NewEnvelope(TypeNewMessage, data)
	h.history.Append(roomID, env)
	h.router.BroadcastToRoom(roomID, env, "")
}

// BroadcastMessageUpdated 广播一条消息编辑事件
func (h *Hub) BroadcastMessageUpdated(roomID string, data MessageData) {
	data.IsEdited = true
	h.router.BroadcastToRoom(roomID, NewEnvelope(TypeMessageUpdated, data), "")
}

// BroadcastMessageDeleted 广播一条消息删除事件
func (h *Hub) BroadcastMessageDeleted(roomID, messageID string) {
	h.router.BroadcastToRoom(roomID, NewEnvelope(TypeMessageDeleted, MessageData{
		ID:     messageID,
		RoomID: roomID,
	}), "")
}

// BroadcastSystem 广播一条系统消息并写入房间历史
func (h *Hub) BroadcastSystem(roomID, content string, metadata map[string]any) {
	env := NewEnvelope(TypeSystemMessage, SystemData{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Content:  content,
		Metadata: metadata,
	})
	h.history.Append(roomID, env)
	h.router.BroadcastToRoom(roomID, env, "")
}

// RequestFeedback 向房间广播反馈请求
func (h *Hub) RequestFeedback(roomID, prompt string) {
	h.router.BroadcastToRoom(roomID, NewEnvelope(TypeFeedbackRequest, FeedbackData{
		RoomID: roomID,
		Prompt: prompt,
	}), "")
}

// SendToIdentity 向 identity 所在的全部房间投递
func (h *Hub) SendToIdentity(identity string, env *Envelope) {
	h.router.BroadcastToIdentity(identity, env)
}

// Participants 返回房间成员及其在线状态
func (h *Hub) Participants(roomID string) []Participant {
	members := h.registry.MembersOf(roomID)
	out := make([]Participant, 0, len(members))
	for _, identity := range members {
		snap := h.presence.Snapshot(identity)
		out = append(out, Participant{
			Identity: identity,
			IsOnline: snap.IsOnline,
			LastSeen: snap.LastSeen,
		})
	}
	return out
}

// Members 返回房间成员快照
func (h *Hub) Members(roomID string) []string {
	return h.registry.MembersOf(roomID)
}

// Presence 返回 identity 的在线状态快照
func (h *Hub) Presence(identity string) PresenceSnapshot {
	return h.presence.Snapshot(identity)
}

// OnlineIdentities 返回所有在线 identity
func (h *Hub) OnlineIdentities() []string {
	return h.registry.OnlineIdentities()
}

// History 返回房间最近 n 条历史信封
func (h *Hub) History(roomID string, n int) []*Envelope {
	return h.history.Recent(roomID, n)
}

// Router 返回广播路由器
func (h *Hub) Router() *Router {
	return h.router
}

// Registry 返回连接注册表
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Reaper 返回清扫器
func (h *Hub) Reaper() *Reaper {
	return h.reaper
}
