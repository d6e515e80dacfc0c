// Package hub provides the realtime connection and broadcast core for relay.
//
// # Features
//
//   - Connection registry keyed by (identity, room) with snapshot reads
//   - Room broadcasting with per-connection failure isolation
//   - Derived presence (online state and last-seen) with no separate storage
//   - Ephemeral typing indicators with idle expiry
//   - Background reaper for idle sessions and stale typing indicators
//   - Bounded per-room in-memory message history
//
// # Basic Usage
//
// Create a hub, start the reaper, and register connections:
//
//	h, err := hub.New(
//	    hub.WithSessionTimeout(30 * time.Minute),
//	    hub.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h.Start()
//	defer h.Stop()
//
//	// 注册一条连接（handle 实现 hub.Sender）
//	members, replaced := h.Join("u1", "room-1", handle)
//	if replaced != nil {
//	    replaced.Close(4005, "session replaced")
//	}
//	h.AnnounceJoin("u1", "room-1")
//
//	// 广播
//	h.BroadcastMessage("room-1", hub.MessageData{SenderID: "u1", Content: "hi"})
//	h.Typing("u1", "room-1", true)
//
//	// 断开
//	h.Leave("u1", "room-1")
//
// # Concurrency Model
//
// Registry、PresenceTracker、TypingStore 各自持有一把读写锁，所有变更
// 和快照读取都在锁内完成；Router 在锁外基于快照投递，单个接收者的
// 发送失败只触发它自己的注销，不影响其余接收者，也不会传播给调用方。
//
// 快照在广播期间保持稳定：同一次 BroadcastToRoom 中，快照里的每个
// 成员要么收到信封，要么在本次调用中被移除，不存在被静默跳过的情况。
//
// # Lifecycle
//
// Hub 是显式构造的实例，不存在包级单例；Reaper 通过 Start/Stop 显式
// 启停，Start 幂等，Stop 返回时保证清扫循环已完全退出。
package hub
