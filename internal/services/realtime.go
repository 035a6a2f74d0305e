package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MessageEvent is the payload pushed to a recipient's open WebSocket
// connections when a direct message arrives.
type MessageEvent struct {
	Type         string    `json:"type"`
	MessageID    int64     `json:"message_id"`
	FromUsername string    `json:"from_username"`
	ToUserID     int64     `json:"to_user_id"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
}

// PushConn is the minimal WebSocket surface the hub needs.
type PushConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// lockedConn serializes writes to one connection. Gorilla conns permit
// only a single concurrent writer, and fan-out runs one goroutine per
// event, so two near-simultaneous messages would otherwise race.
type lockedConn struct {
	mu   sync.Mutex
	conn PushConn
}

func (c *lockedConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *lockedConn) Close() error { return c.conn.Close() }

// Hub tracks open connections per user. A user may hold several
// (multi-device); each connection gets its own id so unregistering one
// device does not drop the others.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[uuid.UUID]PushConn

	redis *redis.Client // nil disables cross-instance fan-out
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		conns: make(map[int64]map[uuid.UUID]PushConn),
		redis: redisClient,
	}
}

// Register adds a connection for userID and returns its connection id.
func (h *Hub) Register(userID int64, conn PushConn) uuid.UUID {
	connID := uuid.New()
	h.mu.Lock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[uuid.UUID]PushConn)
	}
	h.conns[userID][connID] = &lockedConn{conn: conn}
	h.mu.Unlock()
	return connID
}

// Unregister removes a single connection.
func (h *Hub) Unregister(userID int64, connID uuid.UUID) {
	h.mu.Lock()
	if m, ok := h.conns[userID]; ok {
		delete(m, connID)
		if len(m) == 0 {
			delete(h.conns, userID)
		}
	}
	h.mu.Unlock()
}

// Publish announces a new direct message. With Redis configured the
// event goes over Pub/Sub so every instance can fan out to its local
// connections; without it the event is delivered locally only.
func (h *Hub) Publish(ctx context.Context, event MessageEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if h.redis == nil {
		h.fanOut(event)
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("dm:user:%d", event.ToUserID)
	return h.redis.Publish(ctx, channel, data).Err()
}

// fanOut writes the event to every local connection of the recipient.
// Best effort: a slow or dead connection only logs.
func (h *Hub) fanOut(event MessageEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.conns[event.ToUserID] {
		go func(c PushConn) {
			if err := c.WriteJSON(event); err != nil {
				log.Printf("error writing message event to websocket: %v", err)
			}
		}(conn)
	}
}

// StartSubscriber runs the shared Redis listener for this instance,
// reconnecting with backoff until ctx is cancelled. No-op without Redis.
func (h *Hub) StartSubscriber(ctx context.Context) {
	if h.redis == nil {
		return
	}
	go h.runSubscriber(ctx)
}

func (h *Hub) runSubscriber(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := h.redis.PSubscribe(ctx, "dm:user:*")
			defer pubsub.Close()

			log.Println("message push subscriber started (pattern: dm:user:*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("message push subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event MessageEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("failed to unmarshal message event: %v", err)
					continue
				}
				h.fanOut(event)
			}
		}()
	}
}
