// internal/api/handlers.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SweetAffection/internal/lexicon"
	"github.com/Corphon/SweetAffection/internal/services"
)

// maxMessageRunes 单条消息长度上限
const maxMessageRunes = 500

// Handler 处理API请求
type Handler struct {
	Game      *services.GameService
	LLM       *services.LLMService // 可为空
	Response  *ResponseHelper
	DebugMode bool
	startedAt time.Time
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Message string `json:"message"`
}

// SlotRequest 存档请求
type SlotRequest struct {
	Slot string `json:"slot"`
}

// ClosenessRequest 调试用亲密度设置
type ClosenessRequest struct {
	Closeness *float64 `json:"closeness"`
}

// NewHandler 创建处理器
func NewHandler(game *services.GameService, llmService *services.LLMService, debugMode bool) *Handler {
	return &Handler{
		Game:      game,
		LLM:       llmService,
		Response:  NewResponseHelper(),
		DebugMode: debugMode,
		startedAt: time.Now(),
	}
}

// validateMessage 非空且不超过长度上限
func validateMessage(message string) (string, string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", "消息不能为空"
	}
	if lexicon.RuneLen(message) > maxMessageRunes {
		return "", "消息过长"
	}
	return message, ""
}

// CreateSession POST /api/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	state, err := h.Game.NewSession(c.Request.Context())
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Created(c, state, "会话已创建")
}

// GetSession GET /api/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	state, err := h.Game.State(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, state)
}

// DeleteSession DELETE /api/sessions/:id
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.Game.CloseSession(c.Param("id")); err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, nil, "会话已结束")
}

// Chat POST /api/sessions/:id/chat
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorMessageInvalid, "无效的请求格式", err.Error())
		return
	}
	message, problem := validateMessage(req.Message)
	if problem != "" {
		h.Response.Error(c, http.StatusBadRequest, ErrorMessageInvalid, problem)
		return
	}

	turn, err := h.Game.Chat(c.Request.Context(), c.Param("id"), message)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, turn)
}

// Confess POST /api/sessions/:id/confess
func (h *Handler) Confess(c *gin.Context) {
	res, err := h.Game.Confess(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, res)
}

// GetTopics GET /api/sessions/:id/topics
func (h *Handler) GetTopics(c *gin.Context) {
	list, err := h.Game.Topics(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"topics": list})
}

// SaveSession POST /api/sessions/:id/save
func (h *Handler) SaveSession(c *gin.Context) {
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorSlotInvalid, "无效的请求格式", err.Error())
		return
	}
	info, err := h.Game.Save(c.Request.Context(), c.Param("id"), req.Slot)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, info, "存档已保存")
}

// LoadSession POST /api/sessions/load
func (h *Handler) LoadSession(c *gin.Context) {
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorSlotInvalid, "无效的请求格式", err.Error())
		return
	}
	state, err := h.Game.Load(c.Request.Context(), req.Slot)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, state, "存档已读取")
}

// ListSaves GET /api/saves
func (h *Handler) ListSaves(c *gin.Context) {
	saves, err := h.Game.ListSaves(c.Request.Context())
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"saves": saves})
}

// DeleteSave DELETE /api/saves/:slot
func (h *Handler) DeleteSave(c *gin.Context) {
	if err := h.Game.DeleteSave(c.Request.Context(), c.Param("slot")); err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, nil, "存档已删除")
}

// SetCloseness POST /api/sessions/:id/debug/closeness，仅调试模式可用
func (h *Handler) SetCloseness(c *gin.Context) {
	if !h.DebugMode {
		h.Response.Forbidden(c, "仅调试模式可用")
		return
	}
	var req ClosenessRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Closeness == nil {
		h.Response.BadRequest(c, "需要提供 closeness")
		return
	}
	state, err := h.Game.DebugSetCloseness(c.Param("id"), *req.Closeness)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, state)
}

// Health GET /api/health
func (h *Handler) Health(c *gin.Context) {
	llmReady, llmState := false, "disabled"
	if h.LLM != nil {
		llmReady, llmState = h.LLM.IsReady(), h.LLM.GetReadyState()
	}
	h.Response.Success(c, gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"sessions":       len(h.Game.SessionIDs()),
		"llm_ready":      llmReady,
		"llm_state":      llmState,
	})
}

// Metrics GET /api/metrics
func (h *Handler) Metrics(c *gin.Context) {
	h.Response.Success(c, h.Game.Metrics().Snapshot())
}
