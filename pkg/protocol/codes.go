package protocol

// 连接建立阶段的关闭码
//
// 每个失败原因都有独立的关闭码和固定的原因短语，客户端无需解析
// 自由文本即可区分失败类别。
const (
	// CloseInternalError 服务端内部错误
	CloseInternalError = 4000
	// CloseInvalidToken 令牌缺失或无效
	CloseInvalidToken = 4001
	// CloseIdentityNotFound 身份不存在或已停用
	CloseIdentityNotFound = 4002
	// CloseRoomNotFound 房间不存在
	CloseRoomNotFound = 4003
	// CloseAccessDenied 无权访问该房间
	CloseAccessDenied = 4004
	// CloseSessionReplaced 同一身份在同一房间重连，旧连接被替换
	CloseSessionReplaced = 4005
)

// closeReasons 关闭码对应的原因短语
var closeReasons = map[int]string{
	CloseInternalError:    "internal server error",
	CloseInvalidToken:     "missing or invalid token",
	CloseIdentityNotFound: "identity not found or inactive",
	CloseRoomNotFound:     "room not found",
	CloseAccessDenied:     "access denied",
	CloseSessionReplaced:  "session replaced by a newer connection",
}

// CloseReason 返回关闭码对应的原因短语
func CloseReason(code int) string {
	if reason, ok := closeReasons[code]; ok {
		return reason
	}
	return closeReasons[CloseInternalError]
}
