// internal/api/router.go
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Corphon/SweetAffection/internal/services"
	"github.com/Corphon/SweetAffection/internal/utils"
)

// RouterDeps 构建路由所需依赖
type RouterDeps struct {
	Game      *services.GameService
	LLM       *services.LLMService
	Logger    *utils.Logger
	DebugMode bool
}

// Router 路由及其后台组件，关闭服务时调用 Close
type Router struct {
	*gin.Engine
	Handler   *Handler
	WebSocket *WebSocketManager
	limiter   *RateLimiter
}

// SetupRouter 配置HTTP路由
func SetupRouter(deps RouterDeps) *Router {
	if deps.Logger == nil {
		deps.Logger = utils.GetLogger()
	}
	if !deps.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := NewHandler(deps.Game, deps.LLM, deps.DebugMode)
	wsManager := NewWebSocketManager(deps.Logger)
	limiter := NewRateLimiter()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(requestLogger(deps.Logger))
	r.Use(corsMiddleware())

	// WebSocket 支持
	r.GET("/ws/sessions/:id", handler.SessionWebSocket(wsManager))

	api := r.Group("/api")
	api.Use(DefaultRateLimit(limiter))
	{
		api.GET("/health", handler.Health)
		api.GET("/metrics", handler.Metrics)
		api.GET("/ws/status", func(c *gin.Context) {
			handler.Response.Success(c, wsManager.GetStatus())
		})

		// ===============================
		// 会话相关路由
		// ===============================
		sessions := api.Group("/sessions")
		{
			sessions.POST("", handler.CreateSession)
			sessions.POST("/load", handler.LoadSession)
			sessions.GET("/:id", handler.GetSession)
			sessions.DELETE("/:id", handler.DeleteSession)
			sessions.POST("/:id/chat", ChatRateLimit(limiter), handler.Chat)
			sessions.POST("/:id/confess", handler.Confess)
			sessions.POST("/:id/save", handler.SaveSession)
			sessions.GET("/:id/topics", handler.GetTopics)
			sessions.POST("/:id/debug/closeness", handler.SetCloseness)
		}

		// ===============================
		// 存档相关路由
		// ===============================
		saves := api.Group("/saves")
		{
			saves.GET("", handler.ListSaves)
			saves.DELETE("/:slot", handler.DeleteSave)
		}
	}

	return &Router{
		Engine:    r,
		Handler:   handler,
		WebSocket: wsManager,
		limiter:   limiter,
	}
}

// Close 关闭 WebSocket 连接并停止限流器清理
func (r *Router) Close() {
	r.WebSocket.Shutdown()
	r.limiter.Stop()
}
