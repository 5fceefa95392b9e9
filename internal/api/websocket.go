// internal/api/websocket.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/SweetAffection/internal/utils"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = (wsPongWait * 9) / 10
	wsMaxMessage  = 4096
	wsSendBacklog = 32
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsInbound 客户端发来的帧
type wsInbound struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// wsOutbound 服务端推送的帧
type wsOutbound struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Code      string      `json:"code,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebSocketClient 一个 WebSocket 客户端连接
type WebSocketClient struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	mu        sync.Mutex // 保护 send 的关闭
	closed    bool
	createdAt time.Time
}

// Close 关闭发送队列，writePump 随之退出并关闭连接
func (client *WebSocketClient) Close() {
	client.mu.Lock()
	defer client.mu.Unlock()
	if !client.closed {
		client.closed = true
		close(client.send)
	}
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.closed
}

// enqueue 队列满时丢弃消息
func (client *WebSocketClient) enqueue(msg []byte) bool {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return false
	}
	select {
	case client.send <- msg:
		return true
	default:
		return false
	}
}

// WebSocketManager 按会话管理连接
type WebSocketManager struct {
	connections map[string]map[*WebSocketClient]struct{} // sessionID -> clients
	mutex       sync.RWMutex
	logger      *utils.Logger
}

// NewWebSocketManager 创建连接管理器
func NewWebSocketManager(logger *utils.Logger) *WebSocketManager {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &WebSocketManager{
		connections: make(map[string]map[*WebSocketClient]struct{}),
		logger:      logger,
	}
}

func (manager *WebSocketManager) register(client *WebSocketClient) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.connections[client.sessionID] == nil {
		manager.connections[client.sessionID] = make(map[*WebSocketClient]struct{})
	}
	manager.connections[client.sessionID][client] = struct{}{}

	manager.logger.Info("✅ WebSocket 客户端已连接", map[string]interface{}{"session_id": client.sessionID})
}

func (manager *WebSocketManager) unregister(client *WebSocketClient) {
	manager.mutex.Lock()
	if clients, exists := manager.connections[client.sessionID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(manager.connections, client.sessionID)
		}
	}
	manager.mutex.Unlock()

	client.Close()
	manager.logger.Info("🔌 WebSocket 客户端已断开连接", map[string]interface{}{"session_id": client.sessionID})
}

// BroadcastToSession 向会话的所有连接推送
func (manager *WebSocketManager) BroadcastToSession(sessionID string, msg wsOutbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		manager.logger.Error("序列化广播消息失败", map[string]interface{}{"error": err.Error()})
		return
	}

	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(manager.connections[sessionID]))
	for client := range manager.connections[sessionID] {
		clients = append(clients, client)
	}
	manager.mutex.RUnlock()

	for _, client := range clients {
		if !client.enqueue(data) {
			manager.logger.Warn("⚠️ 客户端消息队列已满，消息被丢弃", map[string]interface{}{"session_id": sessionID})
		}
	}
}

// GetStatus 获取管理器状态
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	sessions := make(map[string]int, len(manager.connections))
	total := 0
	for id, clients := range manager.connections {
		sessions[id] = len(clients)
		total += len(clients)
	}
	return map[string]interface{}{
		"total_sessions":    len(manager.connections),
		"total_connections": total,
		"sessions":          sessions,
	}
}

// Shutdown 关闭所有连接
func (manager *WebSocketManager) Shutdown() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	for _, clients := range manager.connections {
		for client := range clients {
			client.Close()
		}
	}
	manager.connections = make(map[string]map[*WebSocketClient]struct{})
}

// SessionWebSocket GET /ws/sessions/:id
func (h *Handler) SessionWebSocket(manager *WebSocketManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		if _, err := h.Game.State(sessionID); err != nil {
			h.Response.HandleError(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			manager.logger.Warn("WebSocket 升级失败", map[string]interface{}{"error": err.Error()})
			return
		}

		client := &WebSocketClient{
			conn:      conn,
			sessionID: sessionID,
			send:      make(chan []byte, wsSendBacklog),
			createdAt: time.Now(),
		}
		manager.register(client)

		go client.writePump()
		h.readPump(c.Request.Context(), manager, client)
	}
}

// readPump 读取客户端帧并处理聊天
func (h *Handler) readPump(ctx context.Context, manager *WebSocketManager, client *WebSocketClient) {
	defer manager.unregister(client)

	client.conn.SetReadLimit(wsMaxMessage)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var in wsInbound
		if err := client.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				manager.logger.Warn("WebSocket 读取失败", map[string]interface{}{
					"session_id": client.sessionID,
					"error":      err.Error(),
				})
			}
			return
		}

		switch in.Type {
		case "ping":
			sendTo(client, wsOutbound{Type: "pong", Timestamp: time.Now()})
		case "chat":
			message, problem := validateMessage(in.Message)
			if problem != "" {
				sendTo(client, wsOutbound{Type: "error", Code: ErrorMessageInvalid, Error: problem, Timestamp: time.Now()})
				continue
			}
			turn, err := h.Game.Chat(ctx, client.sessionID, message)
			if err != nil {
				_, code := statusForError(err)
				sendTo(client, wsOutbound{Type: "error", Code: code, Error: err.Error(), Timestamp: time.Now()})
				continue
			}
			manager.BroadcastToSession(client.sessionID, wsOutbound{Type: "turn", Data: turn, Timestamp: time.Now()})
		default:
			sendTo(client, wsOutbound{Type: "error", Code: ErrorBadRequest, Error: "未知的消息类型: " + in.Type, Timestamp: time.Now()})
		}
	}
}

func sendTo(client *WebSocketClient, msg wsOutbound) {
	if data, err := json.Marshal(msg); err == nil {
		client.enqueue(data)
	}
}

// writePump 串行写出消息并定期 ping
func (client *WebSocketClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
