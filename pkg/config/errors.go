package config

import "errors"

var (
	// ErrConfigReadFailed 配置读取失败
	ErrConfigReadFailed = errors.New("config: 配置读取失败")
	// ErrConfigInvalid 配置取值非法
	ErrConfigInvalid = errors.New("config: 配置取值非法")
)
