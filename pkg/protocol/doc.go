// Package protocol implements the wire protocol for relay connections.
//
// 每条连接经历 connecting → authenticated → active → closed 四个状态：
// 认证与房间授权由外部协作方完成，失败时连接带区分性的关闭码
// （4001-4004）直接关闭，不会进入注册表；注册成功后先收到
// connection_established 确认，随后客户端帧按封闭的动作集合
// {send_message, typing, stop_typing, get_participants} 逐帧分发，
// 未知动作只回发 error 信封，连接保持活跃。
//
// Session 实现 hub.Sender：出站帧经有界队列由独立写协程写出，队列
// 满按发送失败处理，由广播路由器注销连接。
package protocol
