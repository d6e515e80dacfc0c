package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Reaper 空闲会话清扫器
//
// 周期性扫描注册表与输入指示存储：超过会话超时的连接被注销并向
// 房间广播合成的离开事件；超过输入空闲阈值的指示被清除并广播合成
// 的停止输入事件。单次清扫中的任何 panic 都会被捕获并记录，不会
// 终止后台任务。
type Reaper struct {
	registry *Registry
	typing   *TypingStore
	router   *Router
	logger   *zap.Logger
	metrics  Metrics

	interval       time.Duration
	sessionTimeout time.Duration
	typingTimeout  time.Duration

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewReaper 创建清扫器
func NewReaper(registry *Registry, typing *TypingStore, router *Router, cfg *Config, logger *zap.Logger, metrics Metrics) *Reaper {
	return &Reaper{
		registry:       registry,
		typing:         typing,
		router:         router,
		logger:         logger,
		metrics:        metrics,
		interval:       cfg.SweepInterval,
		sessionTimeout: cfg.SessionTimeout,
		typingTimeout:  cfg.TypingTimeout,
	}
}

// Start 启动清扫循环
//
// 幂等：已在运行时再次调用是空操作。
func (rp *Reaper) Start() {
	if !rp.running.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rp.cancel = cancel

	rp.wg.Add(1)
	go func() {
		defer rp.wg.Done()
		rp.run(ctx)
	}()
}

// Stop 停止清扫循环并等待其完全退出
//
// 返回后保证不再有任何清扫动作执行。未启动时是空操作。
func (rp *Reaper) Stop() {
	if !rp.running.CompareAndSwap(true, false) {
		return
	}
	rp.cancel()
	rp.wg.Wait()
}

// run 清扫循环
func (rp *Reaper) run(ctx context.Context) {
	ticker := time.NewTicker(rp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rp.Sweep(time.Now())
		}
	}
}

// Sweep 执行一次清扫
//
// 导出以便外部在测试或运维场景手工触发。
func (rp *Reaper) Sweep(now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			rp.logger.Error("清扫发生 panic，等待下一轮", zap.Any("panic", rec))
		}
	}()

	rp.sweepSessions(now)
	rp.sweepTyping(now)
}

// sweepSessions 注销超时会话
func (rp *Reaper) sweepSessions(now time.Time) {
	for _, pair := range rp.registry.IdlePairs(rp.sessionTimeout, now) {
		if rp.router.Disconnect(pair.Identity, pair.RoomID) {
			rp.metrics.IncrementReapedSessions()
			rp.logger.Info("回收空闲会话",
				zap.String("identity", pair.Identity),
				zap.String("room_id", pair.RoomID))
		}
	}
}

// sweepTyping 清除过期输入指示并广播合成的停止输入事件
func (rp *Reaper) sweepTyping(now time.Time) {
	for roomID, identities := range rp.typing.ExpiredAll(rp.typingTimeout, now) {
		for _, identity := range identities {
			if !rp.typing.ClearTyping(roomID, identity) {
				continue
			}
			rp.metrics.IncrementExpiredTyping()
			rp.router.BroadcastToRoom(roomID, NewTypingEnvelope(identity, roomID, false), identity)
		}
	}
}
