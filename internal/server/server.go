// Package server HTTP 服务层。
//
// 承载 WebSocket 升级入口与房间状态查询接口。业务语义全部委托给
// hub 与 protocol，这里只做路由、升级与参数校验。
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tokmz/relay/pkg/config"
	"github.com/tokmz/relay/pkg/hub"
	"github.com/tokmz/relay/pkg/protocol"
)

// 写超时需要小于服务层写超时，留出关闭帧的发送余量
const writeWait = 10 * time.Second

// Server HTTP 服务
type Server struct {
	engine     *gin.Engine
	http       *http.Server
	hub        *hub.Hub
	dispatcher *protocol.Dispatcher
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

// New 创建 HTTP 服务
func New(cfg *config.ServerConfig, h *hub.Hub, d *protocol.Dispatcher, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		hub:        h,
		dispatcher: d,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.routes()

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// routes 注册路由
func (s *Server) routes() {
	s.engine.GET("/ws/:room_id", s.handleWebSocket)

	api := s.engine.Group("/api")
	{
		api.GET("/online-users", s.handleOnlineUsers)
		api.GET("/users/:identity/presence", s.handlePresence)
		api.GET("/rooms/:room_id/participants", s.handleParticipants)
		api.GET("/rooms/:room_id/history", s.handleHistory)
		api.POST("/rooms/:room_id/system-message", s.handleSystemMessage)
		api.POST("/rooms/:room_id/feedback-request", s.handleFeedbackRequest)
		api.PUT("/rooms/:room_id/messages/:message_id", s.handleMessageUpdated)
		api.DELETE("/rooms/:room_id/messages/:message_id", s.handleMessageDeleted)
	}
}

// Handler 返回底层 http.Handler，供测试挂接
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 启动服务并阻塞，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP 服务启动", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
