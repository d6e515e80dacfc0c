package config

// Option 加载器选项函数
type Option func(*Loader)

// WithFile 指定配置文件完整路径
func WithFile(path string) Option {
	return func(l *Loader) {
		l.file = path
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithOnError 设置监控期间的错误回调
func WithOnError(fn func(error)) Option {
	return func(l *Loader) {
		l.onError = fn
	}
}
