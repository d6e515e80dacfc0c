package hub

import (
	"encoding/json"
	"errors"
	"sync"
)

// errBrokenPipe 模拟底层传输故障
var errBrokenPipe = errors.New("broken pipe")

// fakeSender 测试用传输句柄
type fakeSender struct {
	mu      sync.Mutex
	frames  [][]byte
	failing bool
	closed  bool
	code    int
	reason  string
}

func newFakeSender() *fakeSender {
	return &fakeSender{}
}

func (f *fakeSender) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing {
		return errBrokenPipe
	}
	// 复制一份，广播方可能复用缓冲
	frame := make([]byte, len(data))
	copy(frame, data)
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeSender) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.code = code
	f.reason = reason
	return nil
}

func (f *fakeSender) fail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = true
}

// received 解码全部已收到的信封
func (f *fakeSender) received() []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Envelope, 0, len(f.frames))
	for _, frame := range f.frames {
		var env Envelope
		if err := json.Unmarshal(frame, &env); err == nil {
			out = append(out, env)
		}
	}
	return out
}

// countType 统计收到的某类型信封数量
func (f *fakeSender) countType(t EnvelopeType) int {
	count := 0
	for _, env := range f.received() {
		if env.Type == t {
			count++
		}
	}
	return count
}

// lastOfType 返回最后一条指定类型的信封负载
func (f *fakeSender) lastOfType(t EnvelopeType) (map[string]any, bool) {
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
