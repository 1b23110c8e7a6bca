package service

import (
	"context"
	"encoding/json"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	sendBuffer     = 64

	NotificationChannel = "learnhub:notifications"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage 下发给客户端的消息
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Client struct {
	Hub     *NotificationHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			return
		}

		if !c.Limiter.Allow() {
			continue
		}

		// 客户端只会发送心跳
		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "PING" {
			pong, _ := json.Marshal(WSMessage{Type: "PONG"})
			select {
			case c.Send <- pong:
			default:
			}
		}
	}
}

func (c *Client) writePump() {
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
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

type shard struct {
	clients map[uint]map[*Client]struct{}
	mu      sync.RWMutex
}

// NotificationHub 进程内在线连接注册表，一个用户可以有多个连接
type NotificationHub struct {
	shards [shardCount]*shard
	Redis  *redis.Client
}

func NewNotificationHub(rdb *redis.Client) *NotificationHub {
	h := &NotificationHub{Redis: rdb}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[uint]map[*Client]struct{}),
		}
	}
	return h
}

func (h *NotificationHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

func (h *NotificationHub) Register(c *Client) {
	s := h.getShard(c.UserID)
	s.mu.Lock()
	set, ok := s.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		s.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	s.mu.Unlock()
	monitoring.WSConnections.Inc()
}

// Unregister 可重复调用，只有第一次会关闭发送通道
func (h *NotificationHub) Unregister(c *Client) {
	s := h.getShard(c.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(s.clients, c.UserID)
	}
	close(c.Send)
	monitoring.WSConnections.Dec()
}

// ConnectionCount 当前实例上该用户的连接数
func (h *NotificationHub) ConnectionCount(userID uint) int {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}

type PubSubMessage struct {
	TargetUser uint            `json:"targetUser"`
	Payload    json.RawMessage `json:"payload"`
}

// PushToUser 有 Redis 时经频道广播给所有实例，否则只投递本地连接
func (h *NotificationHub) PushToUser(ctx context.Context, userID uint, msg WSMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if h.Redis == nil {
		h.pushLocal(userID, payload)
		return nil
	}

	body, err := json.Marshal(PubSubMessage{TargetUser: userID, Payload: payload})
	if err != nil {
		return err
	}
	return h.Redis.Publish(ctx, NotificationChannel, body).Err()
}

func (h *NotificationHub) pushLocal(userID uint, payload []byte) {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients[userID] {
		// 慢连接直接丢弃，通知已落库
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// Run 订阅跨实例频道直到 ctx 结束，无 Redis 时直接返回
func (h *NotificationHub) Run(ctx context.Context) {
	if h.Redis == nil {
		return
	}
	pubsub := h.Redis.Subscribe(ctx, NotificationChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var psMsg PubSubMessage
			if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			h.pushLocal(psMsg.TargetUser, psMsg.Payload)
		}
	}
}

// Stop 关闭所有连接
func (h *NotificationHub) Stop() {
	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, set := range s.clients {
			for client := range set {
				close(client.Send)
				closed++
			}
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}
	monitoring.WSConnections.Sub(float64(closed))
	logger.Log.Info("NotificationHub stopped", zap.Int("closedConnections", closed))
}

func ServeWs(hub *NotificationHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
	hub.Register(client)

	go client.writePump()
	go client.readPump()
}
