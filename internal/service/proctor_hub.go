package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"proctorx_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32

	proctorChannel = "proctor_events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProctorEvent 推送给监考面板的实时事件
type ProctorEvent struct {
	Type         string      `json:"type"` // VIOLATION | SUBMISSION_STARTED | SUBMISSION_COMPLETED | SUBMISSION_FLAGGED
	TestID       uint        `json:"testId"`
	SubmissionID uint        `json:"submissionId"`
	Data         interface{} `json:"data,omitempty"`
}

// ProctorClient 一条已建立的监考面板连接
type ProctorClient struct {
	Hub    *ProctorHub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uint
}

// readPump 监考端为只读连接，读循环只负责心跳与断线感知
func (c *ProctorClient) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}
	}
}

func (c *ProctorClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type hubShard struct {
	clients map[uint]*ProctorClient
	mu      sync.RWMutex
}

// ProctorHub fans live proctoring events out to connected recruiter
// dashboards. Events travel through Redis pub/sub so every instance sees
// them regardless of which instance handled the HTTP request.
type ProctorHub struct {
	shards     [shardCount]*hubShard
	register   chan *ProctorClient
	unregister chan *ProctorClient
	Redis      *redis.Client
	ctx        context.Context
}

func NewProctorHub(rdb *redis.Client) *ProctorHub {
	h := &ProctorHub{
		register:   make(chan *ProctorClient),
		unregister: make(chan *ProctorClient),
		Redis:      rdb,
		ctx:        context.Background(),
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &hubShard{
			clients: make(map[uint]*ProctorClient),
		}
	}
	return h
}

func (h *ProctorHub) getShard(userID uint) *hubShard {
	return h.shards[userID%shardCount]
}

type hubPubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *ProctorHub) Run() {
	pubsub := h.Redis.Subscribe(h.ctx, proctorChannel)
	go func() {
		ch := pubsub.Channel()
		for msg := range ch {
			var psMsg hubPubSubMessage
			if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			h.pushToLocalUsers(psMsg.TargetUsers, psMsg.Payload)
		}
	}()

	for {
		select {
		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			s.clients[client.UserID] = client
			s.mu.Unlock()

		case client := <-h.unregister:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if _, ok := s.clients[client.UserID]; ok {
				delete(s.clients, client.UserID)
				close(client.Send)
			}
			s.mu.Unlock()
		}
	}
}

// Publish delivers an event to the given users on every instance.
func (h *ProctorHub) Publish(targetUsers []uint, event ProctorEvent) {
	if len(targetUsers) == 0 {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	psPayload, _ := json.Marshal(hubPubSubMessage{
		TargetUsers: targetUsers,
		Payload:     payload,
	})
	if err := h.Redis.Publish(h.ctx, proctorChannel, psPayload).Err(); err != nil {
		logger.Log.Warn("publish proctor event failed", zap.Error(err), zap.String("type", event.Type))
	}
}

func (h *ProctorHub) pushToLocalUsers(userIDs []uint, payload []byte) {
	for _, id := range userIDs {
		s := h.getShard(id)
		s.mu.RLock()
		if client, ok := s.clients[id]; ok {
			select {
			case client.Send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

// Stop 关闭所有连接
func (h *ProctorHub) Stop() {
	logger.Log.Info("ProctorHub stopping: closing connections...")

	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, client := range s.clients {
			close(client.Send)
			delete(s.clients, userID)
			closed++
		}
		s.mu.Unlock()
	}

	logger.Log.Info("ProctorHub stopped", zap.Int("closedConnections", closed))
}

// ServeProctorWs upgrades a recruiter connection and starts its pumps.
func ServeProctorWs(hub *ProctorHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &ProctorClient{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: userID,
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
