package protocol

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tokmz/relay/pkg/hub"
)

// State 会话状态
type State int32

const (
	// StateConnecting 已建立传输，尚未认证
	StateConnecting State = iota
	// StateAuthenticated 已认证，尚未注册
	StateAuthenticated
	// StateActive 已注册，正常收发帧
	StateActive
	// StateClosed 已关闭
	StateClosed
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// closeFrame 待写出的关闭帧，code 为 0 时只退出不写帧
type closeFrame struct {
	code   int
	reason string
}

// Session 一条连接的会话
//
// 实现 hub.Sender：出站帧进入有界队列，由独立写协程串行写出。
// 队列满说明接收方失速，按发送失败处理，交由路由器注销本连接。
type Session struct {
	conn     Conn
	identity string
	roomID   string

	send    chan []byte
	closeCh chan closeFrame

	state     atomic.Int32
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	logger *zap.Logger
}

// newSession 创建会话
func newSession(conn Conn, identity, roomID string, queueSize int, logger *zap.Logger) *Session {
	return &Session{
		conn:     conn,
		identity: identity,
		roomID:   roomID,
		send:     make(chan []byte, queueSize),
		closeCh:  make(chan closeFrame, 1),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Identity 会话所属身份
func (s *Session) Identity() string {
	return s.identity
}

// RoomID 会话所在房间
func (s *Session) RoomID() string {
	return s.roomID
}

// State 当前状态
func (s *Session) State() State {
	return State(s.state.Load())
}

// setState 切换状态
func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Send 实现 hub.Sender，非阻塞入队
func (s *Session) Send(data []byte) error {
	if s.closed.Load() {
		return hub.ErrConnectionClosed
	}

	select {
	case s.send <- data:
		return nil
	default:
		return hub.ErrSendQueueFull
	}
}

// Close 实现 hub.Sender，投递关闭帧并让写协程收尾
func (s *Session) Close(code int, reason string) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.setState(StateClosed)

		select {
		case s.closeCh <- closeFrame{code: code, reason: reason}:
		default:
		}
	})
	return nil
}

// sendEnvelope 编码并发送一个信封，失败只记录日志
func (s *Session) sendEnvelope(env *hub.Envelope) {
	data, err := env.Encode()
	if err != nil {
		s.logger.Error("编码信封失败", zap.String("type", string(env.Type)), zap.Error(err))
		return
	}
	if err := s.Send(data); err != nil {
		s.logger.Warn("会话发送失败",
			zap.String("identity", s.identity),
			zap.String("room_id", s.roomID),
			zap.Error(err))
	}
}

// writePump 写协程
//
// 串行写出出站帧；收到关闭帧或写失败时退出，退出前总是关闭底层
// 连接，从而解除读循环的阻塞。
func (s *Session) writePump() {
	defer func() {
		_ = s.conn.Close()
		close(s.done)
	}()

	for {
		select {
		case cf := <-s.closeCh:
			if cf.code != 0 {
				_ = s.conn.WriteClose(cf.code, cf.reason)
			}
			return
		case data := <-s.send:
			if err := s.conn.WriteMessage(data); err != nil {
				return
			}
		}
	}
}
