package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/tokmz/relay/pkg/hub"
)

// fakeConn 内存连接桩，in 通道模拟客户端入站帧
type fakeConn struct {
	in   chan []byte
	quit chan struct{}

	mu          sync.Mutex
	written     [][]byte
	closeCode   int
	closeReason string
	quitOnce    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:   make(chan []byte, 16),
		quit: make(chan struct{}),
	}
}

// push 模拟客户端发送一帧
func (f *fakeConn) push(frame string) {
	f.in <- []byte(frame)
}

// disconnect 模拟客户端断开
func (f *fakeConn) disconnect() {
	f.quitOnce.Do(func() { close(f.quit) })
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-f.in:
		return data, nil
	case <-f.quit:
		return nil, net.ErrClosed
	}
}

func (f *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-f.quit:
		return net.ErrClosed
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	frame := make([]byte, len(data))
	copy(frame, data)
	f.written = append(f.written, frame)
	return nil
}

func (f *fakeConn) WriteClose(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCode = code
	f.closeReason = reason
	return nil
}

func (f *fakeConn) Close() error {
	f.disconnect()
	return nil
}

// closeInfo 返回记录的关闭码与原因
func (f *fakeConn) closeInfo() (int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCode, f.closeReason
}

// received 解码全部写出的信封
func (f *fakeConn) received() []hub.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]hub.Envelope, 0, len(f.written))
	for _, frame := range f.written {
		var env hub.Envelope
		if err := json.Unmarshal(frame, &env); err == nil {
			out = append(out, env)
		}
	}
	return out
}

// countType 统计收到的某类型信封数量
func (f *fakeConn) countType(t hub.EnvelopeType) int {
	count := 0
	for _, env := range f.received() {
		if env.Type == t {
			count++
		}
	}
	return count
}

// lastOfType 返回最后一条指定类型的信封负载
func (f *fakeConn) lastOfType(t hub.EnvelopeType) (map[string]any, bool) {
	var found map[string]any
	ok := false
	for _, env := range f.received() {
		if env.Type == t {
			if data, isMap := env.Data.(map[string]any); isMap {
				found = data
				ok = true
			}
		}
	}
	return found, ok
}

// stubAuth 按 "tok-<identity>" 约定解出身份
type stubAuth struct {
	err error
}

func (a stubAuth) Verify(_ context.Context, token string) (*Principal, error) {
	if a.err != nil {
		return nil, a.err
	}
	identity, ok := strings.CutPrefix(token, "tok-")
	if !ok || identity == "" {
		return nil, ErrInvalidToken
	}
	return &Principal{Identity: identity, DisplayName: identity, Role: "user"}, nil
}

// stubRooms 固定放行或固定拒绝
type stubRooms struct {
	err error
}

func (r stubRooms) Authorize(_ context.Context, _ *Principal, _ string) error {
	return r.err
}

// memStore 内存消息存储桩
type memStore struct {
	mu   sync.Mutex
	err  error
	msgs []*StoredMessage
}

func (m *memStore) Persist(_ context.Context, roomID string, sender *Principal, content string, metadata map[string]any) (*StoredMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	msg := &StoredMessage{
		ID:         fmt.Sprintf("m%d", len(m.msgs)+1),
		RoomID:     roomID,
		SenderID:   sender.Identity,
		SenderName: sender.DisplayName,
		Content:    content,
		Metadata:   metadata,
	}
	m.msgs = append(m.msgs, msg)
	return msg, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

// errPersistFailed 测试用持久化失败
var errPersistFailed = errors.New("persist failed")
