package protocol

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/tokmz/relay/pkg/hub"
)

// Dispatcher 协议分发器
//
// 驱动每条连接的状态机：认证、注册、帧分发与收尾。认证与授权由
// 外部协作方完成，失败的连接带着区分性的关闭码直接关闭，永远不会
// 进入注册表。
type Dispatcher struct {
	hub    *hub.Hub
	auth   Authenticator
	rooms  RoomDirectory
	store  MessageStore
	logger *zap.Logger

	queueSize        int
	maxInvalidFrames int
}

// DispatcherOption 分发器选项
type DispatcherOption func(*Dispatcher)

// WithSendQueueSize 设置每条会话的发送队列长度
func WithSendQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithMaxInvalidFrames 设置连续无效帧的容忍上限，超过即断开
func WithMaxInvalidFrames(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxInvalidFrames = n
		}
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher 创建协议分发器
func NewDispatcher(h *hub.Hub, auth Authenticator, rooms RoomDirectory, store MessageStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		hub:              h,
		auth:             auth,
		rooms:            rooms,
		store:            store,
		logger:           zap.NewNop(),
		queueSize:        256,
		maxInvalidFrames: 10,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleConn 处理一条连接的完整生命周期，阻塞直到连接关闭
func (d *Dispatcher) HandleConn(ctx context.Context, conn Conn, token, roomID string) {
	principal, err := d.auth.Verify(ctx, token)
	if err != nil {
		d.reject(conn, err)
		return
	}
	if err := d.rooms.Authorize(ctx, principal, roomID); err != nil {
		d.reject(conn, err)
		return
	}

	s := newSession(conn, principal.Identity, roomID, d.queueSize, d.logger)
	s.setState(StateAuthenticated)
	go s.writePump()

	members, replaced := d.hub.Join(principal.Identity, roomID, s)
	if replaced != nil {
		_ = replaced.Close(CloseSessionReplaced, CloseReason(CloseSessionReplaced))
	}
	s.setState(StateActive)

	// 先给新连接发连接确认（含当前成员），再向房间其余成员广播加入
	s.sendEnvelope(hub.NewEnvelope(hub.TypeConnectionEstablished, hub.EstablishedData{
		Identity:     principal.Identity,
		RoomID:       roomID,
		Participants: members,
	}))
	d.hub.AnnounceJoin(principal.Identity, roomID)

	d.readLoop(ctx, s, principal)

	// 收尾只生效一次；按句柄条件注销，重连覆盖时不误伤新连接
	s.setState(StateClosed)
	d.hub.LeaveHandle(principal.Identity, roomID, s)
	_ = s.Close(0, "")
}

// reject 认证或授权失败时带关闭码关闭连接
func (d *Dispatcher) reject(conn Conn, err error) {
	code := closeCodeFor(err)
	d.logger.Info("拒绝连接",
		zap.Int("close_code", code),
		zap.Error(err))
	_ = conn.WriteClose(code, CloseReason(code))
	_ = conn.Close()
}

// readLoop 读循环，一次处理一帧
//
// 无效帧回发协议错误信封并保持 ACTIVE；连续无效帧超过上限视为不可
// 恢复的解码失败，断开连接。
func (d *Dispatcher) readLoop(ctx context.Context, s *Session, p *Principal) {
	invalid := 0
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		// 入站流量即活跃信号
		d.hub.Touch(s.identity, s.roomID)

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			invalid++
			if invalid > d.maxInvalidFrames {
				d.logger.Warn("连续无效帧超限，断开连接",
					zap.String("identity", s.identity),
					zap.String("room_id", s.roomID))
				return
			}
			s.sendEnvelope(hub.NewErrorEnvelope("invalid frame format"))
			continue
		}
		invalid = 0

		d.dispatch(ctx, s, p, &frame)
	}
}

// dispatch 按动作分发一帧
func (d *Dispatcher) dispatch(ctx context.Context, s *Session, p *Principal, frame *Frame) {
	switch frame.Action {
	case ActionSendMessage:
		d.handleSendMessage(ctx, s, p, frame)

	case ActionTyping:
		d.hub.Typing(s.identity, s.roomID, true)

	case ActionStopTyping:
		d.hub.Typing(s.identity, s.roomID, false)

	case ActionGetParticipants:
		s.sendEnvelope(hub.NewEnvelope(hub.TypeParticipantsList, hub.ParticipantsData{
			RoomID:       s.roomID,
			Participants: d.hub.Participants(s.roomID),
		}))

	default:
		s.sendEnvelope(hub.NewErrorEnvelope("unknown action: " + frame.Action))
	}
}

// handleSendMessage 先持久化再广播
func (d *Dispatcher) handleSendMessage(ctx context.Context, s *Session, p *Principal, frame *Frame) {
	if frame.Message == "" {
		s.sendEnvelope(hub.NewErrorEnvelope("message content is empty"))
		return
	}

	stored, err := d.store.Persist(ctx, s.roomID, p, frame.Message, frame.Metadata)
	if err != nil {
		d.logger.Error("消息持久化失败",
			zap.String("identity", s.identity),
			zap.String("room_id", s.roomID),
			zap.Error(err))
		s.sendEnvelope(hub.NewErrorEnvelope("failed to send message"))
		return
	}

	d.hub.BroadcastMessage(s.roomID, hub.MessageData{
		ID:         stored.ID,
		RoomID:     stored.RoomID,
		SenderID:   stored.SenderID,
		SenderName: stored.SenderName,
		Content:    stored.Content,
		Metadata:   stored.Metadata,
		CreatedAt:  stored.CreatedAt.Unix(),
		IsEdited:   stored.IsEdited,
	})
}
