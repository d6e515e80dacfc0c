// Package config 应用配置加载。
//
// 基于 viper 读取 YAML 配置文件并支持环境变量覆盖（前缀 RELAY，
// 层级分隔符用下划线，如 RELAY_SERVER_ADDR）。配置文件可选，缺失
// 时使用内置默认值。支持 fsnotify 文件监控实现变更回调。
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`          // 监听地址
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // 读超时
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // 写超时
}

// HubConfig 连接中枢配置
type HubConfig struct {
	SessionTimeout time.Duration `mapstructure:"session_timeout"` // 会话空闲超时
	TypingTimeout  time.Duration `mapstructure:"typing_timeout"`  // 输入指示过期阈值
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`  // 清扫周期
	HistoryLimit   int           `mapstructure:"history_limit"`   // 每房间历史消息上限
	SendQueueSize  int           `mapstructure:"send_queue_size"` // 每会话发送队列长度
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string `mapstructure:"level"`   // debug/info/warn/error
	Format  string `mapstructure:"format"`  // json/console
	Console bool   `mapstructure:"console"` // 是否输出到控制台
	File    string `mapstructure:"file"`    // 轮转文件路径（空则不写文件）

	MaxSize    int `mapstructure:"max_size"`    // 单文件最大大小（MB）
	MaxAge     int `mapstructure:"max_age"`     // 文件保留天数
	MaxBackups int `mapstructure:"max_backups"` // 最多保留文件数
}

// Config 应用配置
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Hub    HubConfig    `mapstructure:"hub"`
	Log    LogConfig    `mapstructure:"log"`
}

// defaults 内置默认值
var defaults = map[string]any{
	"server.addr":          ":8080",
	"server.read_timeout":  "15s",
	"server.write_timeout": "15s",

	"hub.session_timeout": "30m",
	"hub.typing_timeout":  "10s",
	"hub.sweep_interval":  "60s",
	"hub.history_limit":   50,
	"hub.send_queue_size": 256,

	"log.level":   "info",
	"log.format":  "json",
	"log.console": true,
}

// Loader 配置加载器
type Loader struct {
	viper *viper.Viper
	mu    sync.RWMutex

	file      string       // 配置文件完整路径（空则只用默认值与环境变量）
	envPrefix string       // 环境变量前缀
	watching  bool         // 是否正在监控
	onError   func(error)  // 错误回调
}

// NewLoader 创建配置加载器
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		viper:     viper.New(),
		envPrefix: "RELAY",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load 加载配置
//
// 合并顺序：默认值 < 配置文件 < 环境变量。文件未指定或不存在不算
// 错误，解析失败才报错。
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, v := range defaults {
		l.viper.SetDefault(k, v)
	}

	l.viper.SetEnvPrefix(l.envPrefix)
	l.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.viper.AutomaticEnv()

	if l.file != "" {
		l.viper.SetConfigFile(l.file)
		if err := l.viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("%w: %v", ErrConfigReadFailed, err)
			}
		}
	}

	return l.unmarshal()
}

// Reload 重新读取配置文件并解析
func (l *Loader) Reload() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != "" {
		if err := l.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigReadFailed, err)
		}
	}
	return l.unmarshal()
}

// unmarshal 解析并校验，调用方必须持有 mu
func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr 不能为空", ErrConfigInvalid)
	}
	if c.Hub.SessionTimeout <= 0 {
		return fmt.Errorf("%w: hub.session_timeout 必须为正", ErrConfigInvalid)
	}
	if c.Hub.TypingTimeout <= 0 {
		return fmt.Errorf("%w: hub.typing_timeout 必须为正", ErrConfigInvalid)
	}
	if c.Hub.SweepInterval <= 0 {
		return fmt.Errorf("%w: hub.sweep_interval 必须为正", ErrConfigInvalid)
	}
	if c.Hub.HistoryLimit <= 0 {
		return fmt.Errorf("%w: hub.history_limit 必须为正", ErrConfigInvalid)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level 取值非法: %s", ErrConfigInvalid, c.Log.Level)
	}
	return nil
}
