package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tokmz/relay/pkg/hub"
	"github.com/tokmz/relay/pkg/protocol"
)

// handleWebSocket 升级连接并交给协议分发器，阻塞到连接关闭
//
// 令牌从 query 参数取。认证在升级之后做：失败时用区分性的
// WebSocket 关闭码告知客户端，而不是 HTTP 状态码。
func (s *Server) handleWebSocket(c *gin.Context) {
	roomID := c.Param("room_id")
	token := c.Query("token")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	s.dispatcher.HandleConn(c.Request.Context(), protocol.WrapConn(conn, writeWait), token, roomID)
}

// handleOnlineUsers 返回当前在线的全部身份
func (s *Server) handleOnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online_users": s.hub.OnlineIdentities(),
	})
}

// handlePresence 返回单个身份的在线状态与最后在线时间
func (s *Server) handlePresence(c *gin.Context) {
	c.JSON(http.StatusOK, s.hub.Presence(c.Param("identity")))
}

// handleParticipants 返回房间成员及其在线状态
func (s *Server) handleParticipants(c *gin.Context) {
	roomID := c.Param("room_id")
	c.JSON(http.StatusOK, gin.H{
		"room_id":      roomID,
		"participants": s.hub.Participants(roomID),
	})
}

// handleHistory 返回房间最近的消息信封
func (s *Server) handleHistory(c *gin.Context) {
	var query struct {
		Limit int `form:"limit,default=50"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	roomID := c.Param("room_id")
	c.JSON(http.StatusOK, gin.H{
		"room_id":  roomID,
		"messages": s.hub.History(roomID, query.Limit),
	})
}

// handleSystemMessage 向房间广播一条系统消息
func (s *Server) handleSystemMessage(c *gin.Context) {
	var req struct {
		Content  string         `json:"content" binding:"required"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.hub.BroadcastSystem(c.Param("room_id"), req.Content, req.Metadata)
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// handleMessageUpdated 通知房间某条消息已被编辑
//
// 编辑本身发生在消息存储侧，这里只负责把结果事件推给在线成员。
func (s *Server) handleMessageUpdated(c *gin.Context) {
	var req struct {
		SenderID string         `json:"sender_id"`
		Content  string         `json:"content" binding:"required"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	roomID := c.Param("room_id")
	s.hub.BroadcastMessageUpdated(roomID, hub.MessageData{
		ID:       c.Param("message_id"),
		RoomID:   roomID,
		SenderID: req.SenderID,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// handleMessageDeleted 通知房间某条消息已被删除
func (s *Server) handleMessageDeleted(c *gin.Context) {
	s.hub.BroadcastMessageDeleted(c.Param("room_id"), c.Param("message_id"))
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// handleFeedbackRequest 向房间广播一条反馈请求
func (s *Server) handleFeedbackRequest(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.hub.RequestFeedback(c.Param("room_id"), req.Prompt)
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
