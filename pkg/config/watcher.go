package config

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Watch 监控配置文件变更
//
// 文件变更后重新解析，成功则调用 onChange，解析失败只报告错误并
// 保留旧配置。未指定配置文件时监控不生效。
func (l *Loader) Watch(onChange func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watching || l.file == "" {
		return
	}

	l.viper.OnConfigChange(func(e fsnotify.Event) {
		l.mu.RLock()
		watching := l.watching
		l.mu.RUnlock()
		if !watching {
			return
		}

		cfg, err := l.Reload()
		if err != nil {
			l.reportError(fmt.Errorf("配置变更解析失败 (%s): %w", e.Name, err))
			return
		}
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.viper.WatchConfig()
	l.watching = true
}

// StopWatch 停止监控
//
// viper 未提供停止底层 fsnotify watcher 的方法，此方法仅标记状态
// 使回调不再生效。
func (l *Loader) StopWatch() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watching = false
}

// reportError 报告错误，优先使用 onError 回调，否则输出到 stderr
func (l *Loader) reportError(err error) {
	l.mu.RLock()
	onError := l.onError
	l.mu.RUnlock()

	if onError != nil {
		onError(err)
	} else {
		fmt.Fprintf(os.Stderr, "[config] %v\n", err)
	}
}
