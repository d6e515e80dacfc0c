package hub

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config Hub 配置
type Config struct {
	// SessionTimeout 会话空闲超时，超过后连接被 Reaper 注销
	SessionTimeout time.Duration

	// TypingTimeout 输入指示空闲阈值，远小于会话超时
	TypingTimeout time.Duration

	// SweepInterval 清扫间隔
	SweepInterval time.Duration

	// HistoryLimit 每个房间保留的历史信封条数，0 表示不保留
	HistoryLimit int

	// Logger 日志（默认 zap.NewNop）
	Logger *zap.Logger

	// Metrics 监控（默认空实现）
	Metrics Metrics
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		SessionTimeout: 30 * time.Minute,
		TypingTimeout:  10 * time.Second,
		SweepInterval:  60 * time.Second,
		HistoryLimit:   50,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("%w: SessionTimeout must be positive, got %v", ErrInvalidConfig, c.SessionTimeout)
	}
	if c.TypingTimeout <= 0 {
		return fmt.Errorf("%w: TypingTimeout must be positive, got %v", ErrInvalidConfig, c.TypingTimeout)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("%w: SweepInterval must be positive, got %v", ErrInvalidConfig, c.SweepInterval)
	}
	if c.TypingTimeout >= c.SessionTimeout {
		return fmt.Errorf("%w: TypingTimeout (%v) must be less than SessionTimeout (%v)",
			ErrInvalidConfig, c.TypingTimeout, c.SessionTimeout)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: HistoryLimit must be non-negative, got %d", ErrInvalidConfig, c.HistoryLimit)
	}
	return nil
}

// Option 配置选项
type Option func(*Config)

// WithSessionTimeout 设置会话空闲超时
func WithSessionTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.SessionTimeout = d
	}
}

// WithTypingTimeout 设置输入指示空闲阈值
func WithTypingTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.TypingTimeout = d
	}
}

// WithSweepInterval 设置清扫间隔
func WithSweepInterval(d time.Duration) Option {
	return func(c *Config) {
		c.SweepInterval = d
	}
}

// WithHistoryLimit 设置每个房间的历史条数上限
func WithHistoryLimit(n int) Option {
	return func(c *Config) {
		c.HistoryLimit = n
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics 设置监控
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		c.Metrics = metrics
	}
}
